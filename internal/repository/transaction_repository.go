package repository

import (
	"context"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/models"
)

//go:generate mockgen -source=transaction_repository.go -destination=mocks/transaction_repository_mock.go -package=mocks
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	// CompareAndSwap persists the mutable fields of tx only if the stored
	// status still equals expected. It returns ErrStatusConflict otherwise.
	CompareAndSwap(ctx context.Context, tx *models.Transaction, expected models.Status) error
	// List returns the requested page and the total number of matches.
	List(ctx context.Context, filter ListFilter) ([]models.Transaction, int64, error)
	Stats(ctx context.Context) (models.Stats, error)
	// ListOverdue returns ids of PENDING transactions whose expiry is not after now.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type ListFilter struct {
	ClientID      string
	Status        models.Status
	PaymentMethod models.PaymentMethod
	// Limit <= 0 means no limit.
	Limit  int
	Offset int
}

// Matches applies the filter predicates, ignoring pagination.
func (f ListFilter) Matches(tx *models.Transaction) bool {
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.PaymentMethod != "" && tx.PaymentMethod != f.PaymentMethod {
		return false
	}
	return tx.MatchesClient(f.ClientID)
}
