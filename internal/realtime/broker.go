package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix       = "messages:"
	ChannelAnnouncement = channelPrefix + "all"
)

// ChannelFor канал входящих сообщений профиля
func ChannelFor(profileID int64) string {
	return channelPrefix + strconv.FormatInt(profileID, 10)
}

// Broker рассылает новые сообщения через Redis pub/sub.
// Подписка фильтруется по получателю: личный канал плюс канал объявлений
type Broker struct {
	log *slog.Logger
	rdb *redis.Client
}

func NewBroker(log *slog.Logger, rdb *redis.Client) *Broker {
	return &Broker{log: log, rdb: rdb}
}

// Publish отправляет сообщение в канал получателя либо в канал объявлений
func (b *Broker) Publish(ctx context.Context, msg *models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("realtime: encode message: %w", err)
	}
	channel := ChannelAnnouncement
	if msg.ReceiverID != nil && !msg.Announcement {
		channel = ChannelFor(*msg.ReceiverID)
	}
	return b.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe возвращает канал сообщений для профиля. Канал закрывается при отмене ctx
func (b *Broker) Subscribe(ctx context.Context, profileID int64) (<-chan *models.Message, error) {
	const op = "realtime.Broker.Subscribe"
	log := b.log.With(slog.String("op", op), slog.Int64("profileID", profileID))

	sub := b.rdb.Subscribe(ctx, ChannelFor(profileID), ChannelAnnouncement)
	// дожидаемся подтверждения подписки, иначе первые сообщения могут потеряться
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make(chan *models.Message, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg models.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Warn("skipping malformed message", logger.Err(err))
					continue
				}
				select {
				case out <- &msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
