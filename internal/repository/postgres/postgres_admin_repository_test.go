package repository_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	postgres "github.com/honeynil/PaymentServiceBF/internal/repository/postgres"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAdminRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresAdminRepository(db)
	ctx := context.Background()

	t.Run("NilAdmin", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilAdmin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidAdmin", func(t *testing.T) {
		err := repo.Create(ctx, &models.Admin{PasswordHash: "hash"})
		assert.ErrorContains(t, err, "username and password hash are required")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AdminAlreadyExists", func(t *testing.T) {
		admin := &models.Admin{Username: "root", PasswordHash: "hash"}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admins`)).
			WithArgs("root", "hash", models.RoleAdmin).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, admin)
		assert.ErrorIs(t, err, pkgerrors.ErrAdminAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		admin := &models.Admin{Username: "root", PasswordHash: "hash"}
		createdAt := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admins (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`)).
			WithArgs("root", "hash", models.RoleAdmin).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int32(7), createdAt))

		err := repo.Create(ctx, admin)
		assert.NoError(t, err)
		assert.Equal(t, int32(7), admin.ID)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.WithinDuration(t, createdAt, admin.CreatedAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admins`)).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Create(ctx, &models.Admin{Username: "ops", PasswordHash: "hash"})
		assert.ErrorContains(t, err, "failed to create admin")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresAdminRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresAdminRepository(db)
	ctx := context.Background()

	t.Run("EmptyUsername", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "")
		assert.ErrorContains(t, err, "username cannot be empty")
	})

	t.Run("Success", func(t *testing.T) {
		createdAt := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, password_hash, role, created_at FROM admins WHERE username = $1`)).
			WithArgs("root").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}).
				AddRow(int32(1), "root", "hash", models.RoleAdmin, createdAt))

		admin, err := repo.GetByUsername(ctx, "root")
		require.NoError(t, err)
		assert.Equal(t, int32(1), admin.ID)
		assert.Equal(t, "hash", admin.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM admins WHERE username = $1`)).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}))

		_, err := repo.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, pkgerrors.ErrAdminNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
