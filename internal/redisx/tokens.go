package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrResetTokenNotFound = errors.New("reset token not found or expired")

// TokenStore хранит deny-list JWT и одноразовые токены сброса пароля
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Revoke помечает токен отозванным до момента его истечения
func (s *TokenStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, fmt.Sprintf(KeyRevokedToken, jti), 1, ttl).Err()
}

func (s *TokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, fmt.Sprintf(KeyRevokedToken, jti)).Result()
	return n > 0, err
}

func (s *TokenStore) SaveResetToken(ctx context.Context, token string, profileID int64) error {
	return s.rdb.Set(ctx, fmt.Sprintf(KeyPasswordReset, token), profileID, TTLPasswordReset).Err()
}

// ConsumeResetToken атомарно читает и удаляет токен (повторно использовать нельзя)
func (s *TokenStore) ConsumeResetToken(ctx context.Context, token string) (int64, error) {
	val, err := s.rdb.GetDel(ctx, fmt.Sprintf(KeyPasswordReset, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrResetTokenNotFound
		}
		return 0, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupted reset token value: %w", err)
	}
	return id, nil
}
