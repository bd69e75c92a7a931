// Package ledger looks up crypto payments on their public ledgers.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/models"
)

//go:generate mockgen -source=verifier.go -destination=mocks/verifier_mock.go -package=mocks
type Verifier interface {
	// Verify reports whether hash pays tx.TotalAmount to the receiving
	// address of tx on the network of method.
	Verify(ctx context.Context, hash string, method models.PaymentMethod, tx *models.Transaction) (bool, error)
}

// StubVerifier never confirms a payment, so every crypto proof goes to
// manual review.
type StubVerifier struct{}

func (StubVerifier) Verify(ctx context.Context, hash string, method models.PaymentMethod, tx *models.Transaction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	slog.Debug("ledger lookup skipped", "transaction_id", tx.ID, "method", method, "hash", hash)
	return false, nil
}

// TimeoutVerifier bounds every lookup of the wrapped verifier.
type TimeoutVerifier struct {
	next    Verifier
	timeout time.Duration
}

func WithTimeout(next Verifier, timeout time.Duration) *TimeoutVerifier {
	return &TimeoutVerifier{next: next, timeout: timeout}
}

func (v *TimeoutVerifier) Verify(ctx context.Context, hash string, method models.PaymentMethod, tx *models.Transaction) (bool, error) {
	if v.timeout <= 0 {
		return v.next.Verify(ctx, hash, method, tx)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ok, err := v.next.Verify(ctx, hash, method, tx)
		ch <- result{ok, err}
	}()

	select {
	case r := <-ch:
		return r.ok, r.err
	case <-ctx.Done():
		return false, fmt.Errorf("ledger lookup for %s: %w", tx.ID, ctx.Err())
	}
}
