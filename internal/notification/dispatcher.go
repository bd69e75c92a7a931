package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/observability"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type WebhookPoster interface {
	Post(ctx context.Context, url string, payload WebhookPayload) error
}

// Dispatcher turns transaction events into notifications and webhooks.
// It consumes events from Kafka, or serves directly as the publisher when
// the service runs with the in-process event bus.
type Dispatcher struct {
	notifier Notifier
	webhook  WebhookPoster
}

func NewDispatcher(notifier Notifier, webhook WebhookPoster) *Dispatcher {
	return &Dispatcher{notifier: notifier, webhook: webhook}
}

// Publish lets the dispatcher stand in for the Kafka producer.
func (d *Dispatcher) Publish(ctx context.Context, event models.TransactionEvent) error {
	return d.Handle(ctx, event)
}

func (d *Dispatcher) Handle(ctx context.Context, event models.TransactionEvent) error {
	tx := event.Transaction
	if tx == nil {
		return errors.New("event carries no transaction")
	}

	ctx, span := otel.Tracer("notification-dispatcher").Start(ctx, "Handle")
	span.SetAttributes(
		attribute.String("event", string(event.Event)),
		attribute.String("transaction_id", tx.ID),
	)
	defer span.End()

	for _, channel := range channelsFor(event.Event, tx) {
		if err := d.notifier.Send(ctx, event.Event, channel, tx); err != nil {
			observability.UpstreamFailures.WithLabelValues("notification").Inc()
			slog.Warn("notification failed",
				"transaction_id", tx.ID,
				"event", event.Event,
				"channel", channel,
				"error", err)
		}
	}

	if event.Event == models.EventValidated && tx.ProductInfo.WebhookURL != "" {
		payload := WebhookPayload{
			Event:         event.Event,
			TransactionID: tx.ID,
			ClientInfo:    tx.ClientInfo,
			ProductInfo:   tx.ProductInfo,
		}
		if err := d.webhook.Post(ctx, tx.ProductInfo.WebhookURL, payload); err != nil {
			observability.UpstreamFailures.WithLabelValues("webhook").Inc()
			slog.Warn("webhook failed",
				"transaction_id", tx.ID,
				"url", tx.ProductInfo.WebhookURL,
				"error", err)
		} else {
			slog.Info("webhook delivered", "transaction_id", tx.ID, "url", tx.ProductInfo.WebhookURL)
		}
	}

	return nil
}

func channelsFor(kind models.EventType, tx *models.Transaction) []Channel {
	var client []Channel
	if tx.ClientInfo.Email != "" {
		client = append(client, ChannelEmail)
	}

	switch kind {
	case models.EventProofSubmitted:
		return []Channel{ChannelAdmin}
	case models.EventValidated:
		if tx.ClientInfo.Phone != "" {
			client = append(client, ChannelSMS)
		}
		return client
	case models.EventTransactionCreated, models.EventCancelled, models.EventRejected, models.EventExpired:
		return client
	default:
		return nil
	}
}
