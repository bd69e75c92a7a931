package repository

import (
	"context"

	"github.com/honeynil/PaymentServiceBF/internal/models"
)

//go:generate mockgen -source=admin_repository.go -destination=mocks/admin_repository_mock.go -package=mocks
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
}
