package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/redis"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
)

type actorKey struct{}

func ContextWithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}

// AuthMiddleware admits requests bearing a valid admin token that is still
// the live session stored in Redis.
func AuthMiddleware(redisClient redis.RedisClient, tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "En-tête d'autorisation manquant")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "En-tête d'autorisation invalide")
				return
			}

			tokenStr := parts[1]
			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				unauthorized(w, pkgerrors.ErrInvalidToken.Message)
				return
			}

			if claims.Role != models.RoleAdmin {
				slog.Warn("non-admin token rejected", "username", claims.Username, "role", claims.Role)
				unauthorized(w, pkgerrors.ErrNotAdmin.Message)
				return
			}

			// Check token in Redis
			storedToken, err := redisClient.Get(r.Context(), SessionKey(claims.Username))
			if err != nil || storedToken != tokenStr {
				slog.Error("invalid or revoked token", "username", claims.Username, "error", err)
				unauthorized(w, pkgerrors.ErrInvalidToken.Message)
				return
			}

			ctx := ContextWithActor(r.Context(), models.Actor{Username: claims.Username, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(pkgerrors.KindUnauthorized),
		"message": message,
	})
}
