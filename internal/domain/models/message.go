package models

import "time"

// Message сообщение между продавцом и администратором.
// У объявления ReceiverID пуст, Announcement = true
type Message struct {
	ID           int64     `json:"id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   *int64    `json:"receiver_id,omitempty"`
	Text         string    `json:"text"`
	Read         bool      `json:"read"`
	Announcement bool      `json:"announcement"`
	CreatedAt    time.Time `json:"created_at"`
}
