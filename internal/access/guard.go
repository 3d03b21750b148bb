package access

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/jwt-new/jwtmiddleware"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/service"
)

type contextKey struct{}

// PrincipalFromContext principal, установленный Guard; nil для анонима
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(contextKey{}).(*models.Principal)
	return p
}

// WithPrincipal кладёт principal в контекст (используется и в тестах хендлеров)
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func writeDecision(w http.ResponseWriter, status int, msg, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Redirect: location})
}

// Guard разрешает роль identity из токена и применяет Decide к пути запроса.
// Ошибка разрешения роли возвращается клиенту как 503: роль не угадывается
func Guard(log *slog.Logger, resolver service.RoleResolverInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "access.Guard"

			switch Classify(r.URL.Path) {
			case TreePublic:
				next.ServeHTTP(w, r)
				return
			case TreeUnknown:
				writeDecision(w, http.StatusNotFound, "not found", "")
				return
			}

			var principal *models.Principal
			id, ok := jwtmiddleware.FromContext(r.Context())
			if !ok && jwtmiddleware.SessionUnverified(r.Context()) {
				writeDecision(w, http.StatusServiceUnavailable, "session store unavailable, try again", "")
				return
			}
			if ok {
				p, err := resolver.Resolve(r.Context(), id)
				switch {
				case err == nil:
					principal = p
				case errors.Is(err, service.ErrIdentityNotFound):
					writeDecision(w, http.StatusUnauthorized, "identity not found", SignInPath)
					return
				case errors.Is(err, service.ErrProfileInactive):
					writeDecision(w, http.StatusForbidden, "profile is deactivated", ForbiddenPath)
					return
				default:
					log.Error("failed to resolve role", slog.String("op", op), slog.Int64("profileID", id), logger.Err(err))
					writeDecision(w, http.StatusServiceUnavailable, "could not resolve role, try again", "")
					return
				}
			}

			d := Decide(principal, r.URL.Path)
			switch d.Outcome {
			case RedirectSignIn:
				writeDecision(w, http.StatusUnauthorized, "authentication required", d.Location)
				return
			case Forbidden:
				log.Warn("role mismatch", slog.String("op", op), slog.String("path", r.URL.Path),
					slog.String("role", string(principal.Role)))
				writeDecision(w, http.StatusForbidden, "forbidden", d.Location)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
