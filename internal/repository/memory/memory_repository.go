// Package memory provides process-local repositories used for development
// (STORE_DRIVER=memory) and for service tests that need real concurrency.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/honeynil/PaymentServiceBF/internal/repository"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
)

// TransactionRepository stores clones, so callers never share memory with the store.
type TransactionRepository struct {
	mu  sync.RWMutex
	txs map[string]*models.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{txs: make(map[string]*models.Transaction)}
}

func (r *TransactionRepository) Create(_ context.Context, tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txs[tx.ID]; ok {
		return pkgerrors.ErrDuplicateTransaction
	}
	r.txs[tx.ID] = tx.Clone()
	return nil
}

func (r *TransactionRepository) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

func (r *TransactionRepository) CompareAndSwap(_ context.Context, tx *models.Transaction, expected models.Status) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.txs[tx.ID]
	if !ok {
		return pkgerrors.ErrTransactionNotFound
	}
	if stored.Status != expected {
		return pkgerrors.ErrStatusConflict
	}

	next := stored.Clone()
	update := tx.Clone()
	next.Status = update.Status
	next.ProofData = update.ProofData
	next.Validation = update.Validation
	next.Cancellation = update.Cancellation
	next.Rejection = update.Rejection
	next.Invoice = update.Invoice
	next.UpdatedAt = update.UpdatedAt
	r.txs[tx.ID] = next
	return nil
}

func (r *TransactionRepository) List(_ context.Context, filter repository.ListFilter) ([]models.Transaction, int64, error) {
	r.mu.RLock()
	matched := make([]*models.Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		if filter.Matches(tx) {
			matched = append(matched, tx.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start, end := 0, len(matched)
	if filter.Limit > 0 {
		start = min(filter.Offset, len(matched))
		end = min(start+filter.Limit, len(matched))
	}

	page := make([]models.Transaction, 0, end-start)
	for _, tx := range matched[start:end] {
		page = append(page, *tx)
	}
	return page, total, nil
}

func (r *TransactionRepository) Stats(_ context.Context) (models.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s models.Stats
	for _, tx := range r.txs {
		s.Count(tx)
	}
	return s, nil
}

func (r *TransactionRepository) ListOverdue(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.mu.RLock()
	var overdue []*models.Transaction
	for _, tx := range r.txs {
		if tx.Status == models.StatusPending && !tx.ExpiresAt.After(now) {
			overdue = append(overdue, tx)
		}
	}
	r.mu.RUnlock()

	sort.Slice(overdue, func(i, j int) bool { return overdue[i].ExpiresAt.Before(overdue[j].ExpiresAt) })
	if limit > 0 && len(overdue) > limit {
		overdue = overdue[:limit]
	}
	ids := make([]string, 0, len(overdue))
	for _, tx := range overdue {
		ids = append(ids, tx.ID)
	}
	return ids, nil
}

type AdminRepository struct {
	mu     sync.RWMutex
	nextID int32
	admins map[string]models.Admin
}

func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]models.Admin)}
}

func (r *AdminRepository) Create(_ context.Context, admin *models.Admin) error {
	if admin == nil {
		return pkgerrors.ErrNilAdmin
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[admin.Username]; ok {
		return pkgerrors.ErrAdminAlreadyExists
	}
	if admin.Role == "" {
		admin.Role = models.RoleAdmin
	}
	r.nextID++
	admin.ID = r.nextID
	admin.CreatedAt = time.Now().UTC()
	r.admins[admin.Username] = *admin
	return nil
}

func (r *AdminRepository) GetByUsername(_ context.Context, username string) (*models.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.admins[username]
	if !ok {
		return nil, pkgerrors.ErrAdminNotFound
	}
	return &admin, nil
}
