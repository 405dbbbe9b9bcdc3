package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.ChatSend, senderID string) (models.Message, error)
	GetConversation(ctx context.Context, userID, peerID string) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, userID, peerID string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores an inbound chat send under a fresh server-side
// id and returns the full envelope.
func (r *MessageRepo) CreateMessage(ctx context.Context, send models.ChatSend, senderID string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, body, file_url, file_type, file_name)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, sender_id, receiver_id, body, file_url, file_type, file_name, read, created_at`,
		uuid.NewString(), senderID, send.ReceiverID, send.Body, send.FileURL, send.FileType, send.FileName).
		StructScan(&msg)
	return msg, err
}

// GetConversation returns every message between two users ordered by
// creation time.
func (r *MessageRepo) GetConversation(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	query := `SELECT id, sender_id, receiver_id, body, file_url, file_type, file_name, read, created_at
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, userID, peerID)
	return msgs, err
}

// MarkConversationRead flags everything the peer sent to the user as
// read, matching the history-fetch side effect of the backend.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, userID, peerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read = TRUE WHERE sender_id=$1 AND receiver_id=$2`, peerID, userID)
	return err
}
