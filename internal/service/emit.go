package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/iwanyu/marketplace/internal/events"
	"github.com/iwanyu/marketplace/internal/lib/logger"
)

// emit публикует событие во внешнюю шину. Ошибка публикации только логируется:
// изменение уже зафиксировано в БД
func emit(ctx context.Context, log *slog.Logger, pub events.Publisher, eventType string, id int64, payload any) {
	if pub == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, strconv.FormatInt(id, 10), payload)
	if err != nil {
		log.Error("failed to build event", slog.String("event", eventType), logger.Err(err))
		return
	}
	if err := pub.Publish(ctx, env); err != nil {
		log.Warn("failed to publish event", slog.String("event", eventType), logger.Err(err))
	}
}
