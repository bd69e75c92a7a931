package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
)

const defaultTokenTTL = time.Hour

// SessionKey is the Redis key holding the single live token of an admin.
func SessionKey(username string) string {
	return fmt.Sprintf("admin:%s:token", username)
}

type adminClaims struct {
	AdminID int32  `json:"admin_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("JWT secret not set")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs an HS256 token carrying the admin's role.
func (s *TokenService) Issue(admin *models.Admin) (string, models.TokenClaims, error) {
	now := s.now()
	claims := models.TokenClaims{
		AdminID:   admin.ID,
		Username:  admin.Username,
		Role:      admin.Role,
		TokenID:   uuid.NewString(),
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		AdminID: claims.AdminID,
		Role:    claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Username,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", models.TokenClaims{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature and expiry and returns the token's claims.
func (s *TokenService) Parse(tokenStr string) (models.TokenClaims, error) {
	var claims adminClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.TokenClaims{}, pkgerrors.ErrInvalidToken
	}
	if claims.Subject == "" {
		return models.TokenClaims{}, pkgerrors.ErrInvalidToken
	}

	out := models.TokenClaims{
		AdminID:  claims.AdminID,
		Username: claims.Subject,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}
