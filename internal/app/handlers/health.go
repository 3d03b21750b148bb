package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger зависимость, доступность которой проверяет /healthz (Postgres, Redis)
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc адаптер функции к Pinger
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

const healthTimeout = 2 * time.Second

// HealthHandler 200 если все зависимости отвечают, иначе 503
func HealthHandler(log *slog.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.HealthHandler"))

		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		names := make([]string, 0, len(deps))
		errs := make([]error, len(deps))
		g, gctx := errgroup.WithContext(ctx)
		i := 0
		for name, dep := range deps {
			idx, dep := i, dep
			names = append(names, name)
			g.Go(func() error {
				errs[idx] = dep.PingContext(gctx)
				return nil
			})
			i++
		}
		_ = g.Wait()

		resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(deps))}
		for idx, name := range names {
			if errs[idx] != nil {
				log.Warn("dependency is down", slog.String("dependency", name), slog.Any("error", errs[idx]))
				resp.Status = "degraded"
				resp.Checks[name] = "down"
				continue
			}
			resp.Checks[name] = "up"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(log, w, status, resp)
	}
}
