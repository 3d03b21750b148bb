package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iwanyu/marketplace/internal/domain/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageStorage описывает методы для работы с сообщениями.
type MessageStorage interface {
	CreateMessage(ctx context.Context, m *models.Message) (*models.Message, error)
	// ListConversation переписка двух профилей в хронологическом порядке
	ListConversation(ctx context.Context, a, b int64) ([]*models.Message, error)
	// ListInbox входящие профиля вместе с объявлениями
	ListInbox(ctx context.Context, profileID int64) ([]*models.Message, error)
	MarkRead(ctx context.Context, id, receiverID int64) error
	CountUnread(ctx context.Context, profileID int64) (int, error)
}

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) MessageStorage {
	return &messageRepository{db: db}
}

const messageColumns = "id, sender_id, receiver_id, text, read, announcement, created_at"

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	m := &models.Message{}
	var receiver sql.NullInt64
	if err := row.Scan(&m.ID, &m.SenderID, &receiver, &m.Text, &m.Read, &m.Announcement, &m.CreatedAt); err != nil {
		return nil, err
	}
	if receiver.Valid {
		m.ReceiverID = &receiver.Int64
	}
	return m, nil
}

func (r *messageRepository) CreateMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, text, announcement) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		m.SenderID, m.ReceiverID, m.Text, m.Announcement,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", translatePgError(err))
	}
	return m, nil
}

func (r *messageRepository) list(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListConversation(ctx context.Context, a, b int64) ([]*models.Message, error) {
	return r.list(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at ASC`, a, b)
}

func (r *messageRepository) ListInbox(ctx context.Context, profileID int64) ([]*models.Message, error) {
	return r.list(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE receiver_id = $1 OR announcement = TRUE
		 ORDER BY created_at DESC`, profileID)
}

func (r *messageRepository) MarkRead(ctx context.Context, id, receiverID int64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE messages SET read = TRUE WHERE id = $1 AND receiver_id = $2", id, receiverID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrMessageNotFound)
}

func (r *messageRepository) CountUnread(ctx context.Context, profileID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read = FALSE", profileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}
