package redisx

import (
	"context"
	"fmt"

	"github.com/iwanyu/marketplace/internal/config"
	"github.com/redis/go-redis/v9"
)

// New создаёт клиента и проверяет соединение
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	return rdb, nil
}
