package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/honeynil/PaymentServiceBF/internal/repository"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const tracerTransactions = "transaction-repository"

const transactionColumns = `id, status, payment_method, amount, fees, total_amount, client_info, product_info, payment_details,
proof_data, validation, cancellation, rejection, invoice, expires_at, created_at, updated_at`

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	if tx == nil {
		slog.Error("failed to create transaction", "method", "Create", "error", pkgerrors.ErrNilTransaction)
		return pkgerrors.ErrNilTransaction
	}

	ctx, _, done := instrument(ctx, tracerTransactions, "CreateTransaction",
		attribute.String("transaction_id", tx.ID),
		attribute.String("payment_method", string(tx.PaymentMethod)),
		attribute.Int64("total_amount", tx.TotalAmount),
	)
	defer done(&err)

	if !tx.Status.Valid() {
		err = fmt.Errorf("invalid transaction status %q", tx.Status)
		slog.Error("invalid transaction status", "method", "Create", "status", tx.Status, "error", err)
		return err
	}
	if tx.Amount <= 0 {
		err = fmt.Errorf("amount must be positive")
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount, "error", err)
		return err
	}

	args, err := insertArgs(tx)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = pkgerrors.ErrDuplicateTransaction
			slog.Error("transaction already exists", "method", "Create", "transaction_id", tx.ID)
			return err
		}
		slog.Error("failed to create transaction", "method", "Create", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "transaction_id", tx.ID, "payment_method", tx.PaymentMethod, "status", tx.Status)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (_ *models.Transaction, err error) {
	ctx, _, done := instrument(ctx, tracerTransactions, "GetTransactionByID", attribute.String("transaction_id", id))
	defer done(&err)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("transaction not found", "method", "GetByID", "transaction_id", id)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}

	return tx, nil
}

func (r *PostgresTransactionRepository) CompareAndSwap(ctx context.Context, tx *models.Transaction, expected models.Status) (err error) {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}

	ctx, _, done := instrument(ctx, tracerTransactions, "CompareAndSwapTransaction",
		attribute.String("transaction_id", tx.ID),
		attribute.String("expected_status", string(expected)),
		attribute.String("status", string(tx.Status)),
	)
	defer done(&err)

	proof, err := jsonArg(tx.ProofData)
	if err != nil {
		return err
	}
	validation, err := jsonArg(tx.Validation)
	if err != nil {
		return err
	}
	cancellation, err := jsonArg(tx.Cancellation)
	if err != nil {
		return err
	}
	rejection, err := jsonArg(tx.Rejection)
	if err != nil {
		return err
	}
	invoice, err := jsonArg(tx.Invoice)
	if err != nil {
		return err
	}

	query := `UPDATE transactions
SET status = $1, proof_data = $2, validation = $3, cancellation = $4, rejection = $5, invoice = $6, updated_at = $7
WHERE id = $8 AND status = $9`
	res, err := r.db.ExecContext(ctx, query,
		tx.Status, proof, validation, cancellation, rejection, invoice, tx.UpdatedAt, tx.ID, expected)
	if err != nil {
		slog.Error("failed to update transaction", "method", "CompareAndSwap", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		err = pkgerrors.ErrStatusConflict
		slog.Warn("transaction status conflict", "method", "CompareAndSwap", "transaction_id", tx.ID, "expected_status", expected)
		return err
	}

	slog.Info("transaction updated", "method", "CompareAndSwap", "transaction_id", tx.ID, "from", expected, "to", tx.Status)
	return nil
}

func (r *PostgresTransactionRepository) List(ctx context.Context, filter repository.ListFilter) (_ []models.Transaction, _ int64, err error) {
	ctx, _, done := instrument(ctx, tracerTransactions, "ListTransactions",
		attribute.String("status", string(filter.Status)),
		attribute.String("payment_method", string(filter.PaymentMethod)),
	)
	defer done(&err)

	where, args := filterClause(filter)

	var total int64
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		slog.Error("failed to count transactions", "method", "List", "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list transactions", "method", "List", "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			err = scanErr
			slog.Error("failed to scan transaction", "method", "List", "error", err)
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, total, nil
}

func (r *PostgresTransactionRepository) Stats(ctx context.Context) (_ models.Stats, err error) {
	ctx, _, done := instrument(ctx, tracerTransactions, "TransactionStats")
	defer done(&err)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'PROCESSING'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COUNT(*) FILTER (WHERE status = 'EXPIRED'),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'COMPLETED'), 0)
		FROM transactions
	`
	var s models.Stats
	err = r.db.QueryRowContext(ctx, query).Scan(
		&s.Total, &s.Pending, &s.Processing, &s.Completed, &s.Cancelled, &s.Failed, &s.Expired, &s.TotalAmount)
	if err != nil {
		slog.Error("failed to compute transaction stats", "method", "Stats", "error", err)
		return models.Stats{}, fmt.Errorf("failed to compute transaction stats: %w", err)
	}
	return s, nil
}

func (r *PostgresTransactionRepository) ListOverdue(ctx context.Context, now time.Time, limit int) (_ []string, err error) {
	ctx, _, done := instrument(ctx, tracerTransactions, "ListOverdueTransactions")
	defer done(&err)

	query := `SELECT id FROM transactions WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, models.StatusPending, now, limit)
	if err != nil {
		slog.Error("failed to list overdue transactions", "method", "ListOverdue", "error", err)
		return nil, fmt.Errorf("failed to list overdue transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan overdue transaction: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate overdue transactions: %w", err)
	}
	return ids, nil
}

func filterClause(f repository.ListFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.PaymentMethod != "" {
		args = append(args, f.PaymentMethod)
		conds = append(conds, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(client_info->>'id' = $%d OR client_info->>'email' = $%d OR client_info->>'phone' = $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func insertArgs(tx *models.Transaction) ([]any, error) {
	client, err := jsonArg(&tx.ClientInfo)
	if err != nil {
		return nil, err
	}
	product, err := jsonArg(&tx.ProductInfo)
	if err != nil {
		return nil, err
	}
	details, err := jsonArg(&tx.PaymentDetails)
	if err != nil {
		return nil, err
	}
	proof, err := jsonArg(tx.ProofData)
	if err != nil {
		return nil, err
	}
	validation, err := jsonArg(tx.Validation)
	if err != nil {
		return nil, err
	}
	cancellation, err := jsonArg(tx.Cancellation)
	if err != nil {
		return nil, err
	}
	rejection, err := jsonArg(tx.Rejection)
	if err != nil {
		return nil, err
	}
	invoice, err := jsonArg(tx.Invoice)
	if err != nil {
		return nil, err
	}
	return []any{
		tx.ID, tx.Status, tx.PaymentMethod, tx.Amount, tx.Fees, tx.TotalAmount,
		client, product, details, proof, validation, cancellation, rejection, invoice,
		tx.ExpiresAt, tx.CreatedAt, tx.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var client, product, details, proof, validation, cancellation, rejection, invoice []byte
	err := row.Scan(
		&tx.ID, &tx.Status, &tx.PaymentMethod, &tx.Amount, &tx.Fees, &tx.TotalAmount,
		&client, &product, &details, &proof, &validation, &cancellation, &rejection, &invoice,
		&tx.ExpiresAt, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c, err := jsonScan[models.ClientInfo](client); err != nil {
		return nil, err
	} else if c != nil {
		tx.ClientInfo = *c
	}
	if p, err := jsonScan[models.ProductInfo](product); err != nil {
		return nil, err
	} else if p != nil {
		tx.ProductInfo = *p
	}
	if d, err := jsonScan[models.PaymentDetails](details); err != nil {
		return nil, err
	} else if d != nil {
		tx.PaymentDetails = *d
	}
	if tx.ProofData, err = jsonScan[models.ProofData](proof); err != nil {
		return nil, err
	}
	if tx.Validation, err = jsonScan[models.Validation](validation); err != nil {
		return nil, err
	}
	if tx.Cancellation, err = jsonScan[models.Cancellation](cancellation); err != nil {
		return nil, err
	}
	if tx.Rejection, err = jsonScan[models.Rejection](rejection); err != nil {
		return nil, err
	}
	if tx.Invoice, err = jsonScan[models.Invoice](invoice); err != nil {
		return nil, err
	}
	return &tx, nil
}
