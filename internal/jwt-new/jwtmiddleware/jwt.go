package jwtmiddleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	security "github.com/iwanyu/marketplace/internal/jwt-new"
	"github.com/iwanyu/marketplace/internal/lib/logger"
)

type contextKey string

const (
	UserIDKey     contextKey = "userID"
	claimsKey     contextKey = "claims"
	unverifiedKey contextKey = "sessionUnverified"
)

// RevocationChecker deny-list отозванных токенов
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NewJWTMiddleware разбирает токен из заголовка Authorization (Bearer) или
// параметра access_token (EventSource не умеет ставить заголовки).
// Запрос без годного токена (нет, битый, просроченный, отозванный) проходит дальше анонимным,
// решение о доступе принимает access.Guard
func NewJWTMiddleware(log *slog.Logger, secret string, revoked RevocationChecker) func(http.Handler) http.Handler {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "jwtmiddleware"

			tokenStr := extractToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := security.ParseToken(tokenStr, secret)
			if err != nil {
				log.Debug("token rejected, continuing anonymous", slog.String("op", op), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			userID, err := claims.ProfileID()
			if err != nil {
				log.Debug("token has invalid subject, continuing anonymous", slog.String("op", op), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					log.Error("failed to check token revocation", slog.String("op", op), logger.Err(err))
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), unverifiedKey, true)))
					return
				}
				if isRevoked {
					log.Debug("token revoked, continuing anonymous", slog.String("op", op), slog.Int64("profileID", userID))
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken возвращает пустую строку, если токена нет или заголовок не в формате Bearer
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get("access_token")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// ClaimsFromContext claims текущего токена (нужны для выхода)
func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*security.Claims)
	return c, ok
}

// SessionUnverified true, если токен был, но проверить отзыв не удалось
func SessionUnverified(ctx context.Context) bool {
	v, _ := ctx.Value(unverifiedKey).(bool)
	return v
}
