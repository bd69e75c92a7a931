package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/auth"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/redis"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/honeynil/PaymentServiceBF/internal/repository"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AdminService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Logout(ctx context.Context, actor models.Actor) error
	CreateAdmin(ctx context.Context, username, password string) (*models.Admin, error)
	IssueToken(ctx context.Context, username string) (string, time.Time, error)
}

type adminService struct {
	adminRepo   repository.AdminRepository
	redisClient redis.RedisClient
	tokens      *auth.TokenService
}

func NewAdminService(adminRepo repository.AdminRepository, redisClient redis.RedisClient, tokens *auth.TokenService) *adminService {
	return &adminService{adminRepo: adminRepo, redisClient: redisClient, tokens: tokens}
}

func (s *adminService) CreateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	ctx, span := otel.Tracer("admin-service").Start(ctx, "CreateAdmin")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		span.SetStatus(codes.Error, "empty username")
		return nil, pkgerrors.Validation("username", "L'identifiant est requis")
	}
	if len(password) < minPasswordLength {
		span.SetStatus(codes.Error, "weak password")
		return nil, pkgerrors.Validation("password", "Le mot de passe doit contenir au moins %d caractères", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "username", username, "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{Username: username, PasswordHash: string(hash), Role: models.RoleAdmin}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, pkgerrors.ErrAdminAlreadyExists) {
			span.SetStatus(codes.Error, "username already exists")
			return nil, pkgerrors.Validation("username", "Cet identifiant existe déjà")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "admin creation failed")
		slog.Error("failed to create admin", "username", username, "error", err)
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin created", "username", username, "admin_id", admin.ID)
	return admin, nil
}

func (s *adminService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	ctx, span := otel.Tracer("admin-service").Start(ctx, "Login")
	defer span.End()

	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrAdminNotFound) {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, "admin lookup failed")
		slog.Error("failed to login", "username", username, "error", err)
		return "", time.Time{}, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "invalid password")
		slog.Error("invalid password", "username", username)
		return "", time.Time{}, pkgerrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.startSession(ctx, admin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session failed")
		return "", time.Time{}, err
	}

	slog.Info("admin logged in", "username", username, "admin_id", admin.ID)
	return token, expiresAt, nil
}

// IssueToken starts a session for an existing admin without a password
// check. It backs operator tooling only.
func (s *adminService) IssueToken(ctx context.Context, username string) (string, time.Time, error) {
	ctx, span := otel.Tracer("admin-service").Start(ctx, "IssueToken")
	defer span.End()

	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "admin lookup failed")
		return "", time.Time{}, fmt.Errorf("failed to load admin %s: %w", username, err)
	}
	return s.startSession(ctx, admin)
}

// startSession issues a token and stores it as the admin's only live
// session, so a new login revokes the previous token.
func (s *adminService) startSession(ctx context.Context, admin *models.Admin) (string, time.Time, error) {
	token, claims, err := s.tokens.Issue(admin)
	if err != nil {
		slog.Error("failed to generate JWT", "username", admin.Username, "error", err)
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, auth.SessionKey(admin.Username), token, s.tokens.TTL()); err != nil {
		slog.Error("failed to cache JWT", "username", admin.Username, "error", err)
		return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
	}
	return token, claims.ExpiresAt, nil
}

func (s *adminService) Logout(ctx context.Context, actor models.Actor) error {
	ctx, span := otel.Tracer("admin-service").Start(ctx, "Logout")
	defer span.End()

	if actor.Username == "" {
		span.SetStatus(codes.Error, "anonymous")
		return pkgerrors.ErrUnauthorized
	}
	if err := s.redisClient.Del(ctx, auth.SessionKey(actor.Username)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session revoke failed")
		slog.Error("failed to revoke session", "username", actor.Username, "error", err)
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	slog.Info("admin logged out", "username", actor.Username)
	return nil
}
