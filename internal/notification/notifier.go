// Package notification delivers transaction events to clients, operators
// and the product webhook. Delivery is best-effort: failures are logged
// and counted, never returned to the code that changed the transaction.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/honeynil/PaymentServiceBF/internal/models"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelAdmin Channel = "admin"
)

//go:generate mockgen -source=notifier.go -destination=mocks/notifier_mock.go -package=mocks
type Notifier interface {
	Send(ctx context.Context, kind models.EventType, channel Channel, tx *models.Transaction) error
}

// LogNotifier simulates email and SMS delivery by logging the message.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, kind models.EventType, channel Channel, tx *models.Transaction) error {
	recipient, err := recipientFor(channel, tx)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "notification sent",
		"channel", channel,
		"recipient", recipient,
		"event", kind,
		"transaction_id", tx.ID,
		"subject", Subject(kind),
		"status", tx.Status,
		"total_amount", tx.TotalAmount)
	return nil
}

func recipientFor(channel Channel, tx *models.Transaction) (string, error) {
	switch channel {
	case ChannelEmail:
		if tx.ClientInfo.Email == "" {
			return "", fmt.Errorf("transaction %s has no email", tx.ID)
		}
		return tx.ClientInfo.Email, nil
	case ChannelSMS:
		if tx.ClientInfo.Phone == "" {
			return "", fmt.Errorf("transaction %s has no phone", tx.ID)
		}
		return tx.ClientInfo.Phone, nil
	case ChannelAdmin:
		return "operations", nil
	default:
		return "", fmt.Errorf("unknown channel %q", channel)
	}
}

// Subject is the human readable title of a notification for kind.
func Subject(kind models.EventType) string {
	switch kind {
	case models.EventTransactionCreated:
		return "Instructions de paiement"
	case models.EventProofSubmitted:
		return "Nouvelle preuve de paiement à vérifier"
	case models.EventValidated:
		return "Paiement confirmé"
	case models.EventCancelled:
		return "Transaction annulée"
	case models.EventRejected:
		return "Paiement refusé"
	case models.EventExpired:
		return "Transaction expirée"
	default:
		return string(kind)
	}
}
