package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
)

// MessageBroker realtime-доставка новых сообщений подписчикам
type MessageBroker interface {
	Publish(ctx context.Context, msg *models.Message) error
	Subscribe(ctx context.Context, profileID int64) (<-chan *models.Message, error)
}

type MessageServiceInterface interface {
	Send(ctx context.Context, sender *models.Principal, receiverID int64, text string) (*models.Message, error)
	Announce(ctx context.Context, sender *models.Principal, text string) (*models.Message, error)
	Conversation(ctx context.Context, me *models.Principal, peerID int64) ([]*models.Message, error)
	Inbox(ctx context.Context, me *models.Principal) ([]*models.Message, error)
	MarkRead(ctx context.Context, me *models.Principal, id int64) error
	UnreadCount(ctx context.Context, me *models.Principal) (int, error)
	Subscribe(ctx context.Context, me *models.Principal) (<-chan *models.Message, error)
	Contacts(ctx context.Context, me *models.Principal) ([]*models.Profile, error)
}

type MessageService struct {
	log      *slog.Logger
	messages storage.MessageStorage
	profiles storage.ProfileStorage
	broker   MessageBroker
}

func NewMessageService(log *slog.Logger, messages storage.MessageStorage, profiles storage.ProfileStorage, broker MessageBroker) *MessageService {
	return &MessageService{log: log, messages: messages, profiles: profiles, broker: broker}
}

// Send личное сообщение. Продавцы и пользователи пишут только администраторам,
// администратор может написать любому активному профилю
func (s *MessageService) Send(ctx context.Context, sender *models.Principal, receiverID int64, text string) (*models.Message, error) {
	const op = "service.MessageService.Send"
	log := s.log.With(slog.String("op", op), slog.Int64("senderID", sender.Profile.ID), slog.Int64("receiverID", receiverID))

	text = strings.TrimSpace(text)
	if text == "" || receiverID == sender.Profile.ID {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	receiver, err := s.profiles.GetProfileByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, fmt.Errorf("%s: receiver: %w", op, err)
		}
		log.Error("failed to get receiver", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !receiver.Active {
		return nil, fmt.Errorf("%s: receiver: %w", op, ErrProfileInactive)
	}
	if !sender.IsAdmin() && receiver.Role != models.RoleAdmin {
		log.Warn("non-admin tried to message non-admin")
		return nil, ErrForbidden
	}

	return s.store(ctx, log, &models.Message{
		SenderID:   sender.Profile.ID,
		ReceiverID: &receiverID,
		Text:       text,
	})
}

// Announce объявление для всех (без получателя)
func (s *MessageService) Announce(ctx context.Context, sender *models.Principal, text string) (*models.Message, error) {
	const op = "service.MessageService.Announce"
	log := s.log.With(slog.String("op", op), slog.Int64("senderID", sender.Profile.ID))

	if !sender.IsAdmin() {
		return nil, ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	return s.store(ctx, log, &models.Message{
		SenderID:     sender.Profile.ID,
		Text:         text,
		Announcement: true,
	})
}

func (s *MessageService) store(ctx context.Context, log *slog.Logger, msg *models.Message) (*models.Message, error) {
	msg, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		log.Error("failed to create message", logger.Err(err))
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	// сообщение уже сохранено, подписчик без realtime увидит его при следующей загрузке
	if err := s.broker.Publish(ctx, msg); err != nil {
		log.Warn("failed to publish message", logger.Err(err))
	}

	log.Info("message sent", slog.Int64("messageID", msg.ID))
	return msg, nil
}

func (s *MessageService) Conversation(ctx context.Context, me *models.Principal, peerID int64) ([]*models.Message, error) {
	const op = "service.MessageService.Conversation"

	list, err := s.messages.ListConversation(ctx, me.Profile.ID, peerID)
	if err != nil {
		s.log.Error("failed to list conversation", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *MessageService) Inbox(ctx context.Context, me *models.Principal) ([]*models.Message, error) {
	const op = "service.MessageService.Inbox"

	list, err := s.messages.ListInbox(ctx, me.Profile.ID)
	if err != nil {
		s.log.Error("failed to list inbox", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *MessageService) MarkRead(ctx context.Context, me *models.Principal, id int64) error {
	const op = "service.MessageService.MarkRead"

	if err := s.messages.MarkRead(ctx, id, me.Profile.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *MessageService) UnreadCount(ctx context.Context, me *models.Principal) (int, error) {
	const op = "service.MessageService.UnreadCount"

	n, err := s.messages.CountUnread(ctx, me.Profile.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Subscribe поток новых сообщений для профиля (личные и объявления)
func (s *MessageService) Subscribe(ctx context.Context, me *models.Principal) (<-chan *models.Message, error) {
	return s.broker.Subscribe(ctx, me.Profile.ID)
}

// Contacts активные администраторы, которым можно написать (кроме себя)
func (s *MessageService) Contacts(ctx context.Context, me *models.Principal) ([]*models.Profile, error) {
	const op = "service.MessageService.Contacts"

	admins, err := s.profiles.ListProfiles(ctx, models.RoleAdmin)
	if err != nil {
		s.log.Error("failed to list admins", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	contacts := make([]*models.Profile, 0, len(admins))
	for _, a := range admins {
		if !a.Active || a.ID == me.Profile.ID {
			continue
		}
		contacts = append(contacts, a)
	}
	return contacts, nil
}
