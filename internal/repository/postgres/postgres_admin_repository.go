package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/PaymentServiceBF/internal/models"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const tracerAdmins = "admin-repository"

type PostgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) *PostgresAdminRepository {
	return &PostgresAdminRepository{db: db}
}

func (r *PostgresAdminRepository) Create(ctx context.Context, admin *models.Admin) (err error) {
	if admin == nil {
		return pkgerrors.ErrNilAdmin
	}
	if admin.Username == "" || admin.PasswordHash == "" {
		return fmt.Errorf("username and password hash are required")
	}
	if admin.Role == "" {
		admin.Role = models.RoleAdmin
	}

	ctx, _, done := instrument(ctx, tracerAdmins, "CreateAdmin", attribute.String("username", admin.Username))
	defer done(&err)

	query := `
	INSERT INTO admins (username, password_hash, role)
	VALUES ($1, $2, $3)
	RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query, admin.Username, admin.PasswordHash, admin.Role).
		Scan(&admin.ID, &admin.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = pkgerrors.ErrAdminAlreadyExists
			return err
		}
		slog.Error("failed to create admin", "username", admin.Username, "error", err)
		return fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin created", "admin_id", admin.ID, "username", admin.Username)
	return nil
}

func (r *PostgresAdminRepository) GetByUsername(ctx context.Context, username string) (_ *models.Admin, err error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	ctx, _, done := instrument(ctx, tracerAdmins, "GetAdminByUsername", attribute.String("username", username))
	defer done(&err)

	query := `SELECT id, username, password_hash, role, created_at FROM admins WHERE username = $1`

	var admin models.Admin
	err = r.db.QueryRowContext(ctx, query, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.Role,
		&admin.CreatedAt,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrAdminNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get admin by username: %w", err)
	}

	return &admin, nil
}
