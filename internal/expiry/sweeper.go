package expiry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
)

const (
	defaultInterval  = 5 * time.Second
	defaultBatchSize = 100
)

// Expirer moves a single PENDING transaction to EXPIRED once it is due.
type Expirer interface {
	ExpireTransaction(ctx context.Context, id string) (bool, error)
}

// OverdueLister finds PENDING transactions already past their deadline.
type OverdueLister interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type Sweeper struct {
	queue    Queue
	expirer  Expirer
	store    OverdueLister
	interval time.Duration
	batch    int64
	now      func() time.Time
}

type Option func(*Sweeper)

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBatchSize(n int64) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper builds a sweeper; store may be nil to skip the overdue scan.
func NewSweeper(queue Queue, expirer Expirer, store OverdueLister, opts ...Option) *Sweeper {
	s := &Sweeper{
		queue:    queue,
		expirer:  expirer,
		store:    store,
		interval: defaultInterval,
		batch:    defaultBatchSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans the store for overdue transactions once, then sweeps the queue
// every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if n, err := s.ScanOverdue(ctx); err != nil {
		slog.Error("overdue scan failed", "error", err)
	} else if n > 0 {
		slog.Info("overdue scan expired transactions", "count", n)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("expiry sweeper started", "interval", s.interval, "batch_size", s.batch)

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce expires every queued id that is due and returns how many moved
// to EXPIRED. Ids whose expiry failed stay queued for the next sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.queue.Due(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	handled := make([]string, 0, len(ids))
	for _, id := range ids {
		ok, err := s.expirer.ExpireTransaction(ctx, id)
		if err != nil && !errors.Is(err, pkgerrors.ErrTransactionNotFound) {
			slog.Error("failed to expire transaction", "transaction_id", id, "error", err)
			continue
		}
		if ok {
			expired++
		}
		handled = append(handled, id)
	}

	if err := s.queue.Remove(ctx, handled...); err != nil {
		return expired, err
	}
	return expired, nil
}

// ScanOverdue expires PENDING transactions the queue may have lost.
func (s *Sweeper) ScanOverdue(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	total := 0
	for {
		ids, err := s.store.ListOverdue(ctx, s.now(), int(s.batch))
		if err != nil {
			return total, err
		}

		expired := 0
		for _, id := range ids {
			ok, err := s.expirer.ExpireTransaction(ctx, id)
			if err != nil {
				slog.Error("failed to expire overdue transaction", "transaction_id", id, "error", err)
				continue
			}
			if ok {
				expired++
			}
		}
		total += expired

		if int64(len(ids)) < s.batch || expired == 0 {
			return total, nil
		}
	}
}
