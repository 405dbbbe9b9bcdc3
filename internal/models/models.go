package models

import "time"

// Peer is a user visible in the directory. IsOnline tracks the latest
// roster broadcast and is never persisted.
type Peer struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	IsOnline bool   `db:"-" json:"is_online"`
}

// Message is a chat message envelope. Immutable once created; ID is the
// sole deduplication key.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Body       string    `db:"body" json:"message"`
	FileURL    string    `db:"file_url" json:"file_url,omitempty"`
	FileType   string    `db:"file_type" json:"file_type,omitempty"`
	FileName   string    `db:"file_name" json:"file_name,omitempty"`
	Read       bool      `db:"read" json:"read"`
	Timestamp  time.Time `db:"created_at" json:"timestamp"`
}

// Frame type tags on the realtime channel. Unknown tags are ignored.
const (
	FrameTypePresence = "presence"
	FrameTypeChat     = "chat"
)

// Frame is an inbound unit on the realtime channel.
type Frame struct {
	Type      string   `json:"type"`
	OnlineIDs []string `json:"online_ids,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

// ChatSend is the outbound frame shape written by the composer.
type ChatSend struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"message"`
	FileURL    string `json:"file_url,omitempty"`
	FileType   string `json:"file_type,omitempty"`
	FileName   string `json:"file_name,omitempty"`
}
