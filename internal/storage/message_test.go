package storage_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageCols = []string{"id", "sender_id", "receiver_id", "text", "read", "announcement", "created_at"}

func TestCreateMessage_Announcement(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewMessageRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages (sender_id, receiver_id, text, announcement)")).
		WithArgs(int64(1), nil, "Maintenance tonight", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(70), now))

	m, err := repo.CreateMessage(context.Background(), &models.Message{SenderID: 1, Text: "Maintenance tonight", Announcement: true})
	require.NoError(t, err)
	assert.Equal(t, int64(70), m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListInbox_IncludesAnnouncements(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewMessageRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE receiver_id = $1 OR announcement = TRUE")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(int64(2), int64(1), int64(10), "Welcome", false, false, now).
			AddRow(int64(1), int64(1), nil, "Maintenance", false, true, now))

	msgs, err := repo.ListInbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[0].ReceiverID)
	assert.Equal(t, int64(10), *msgs[0].ReceiverID)
	assert.Nil(t, msgs[1].ReceiverID)
	assert.True(t, msgs[1].Announcement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRead_OnlyReceiver(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewMessageRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET read = TRUE WHERE id = $1 AND receiver_id = $2")).
		WithArgs(int64(2), int64(11)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), 2, 11)
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read = FALSE")).
		WithArgs(int64(10)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountUnread(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
