package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// Message is one direct message between two users. Thread ordering is
// defined by the persisted timestamp, not by socket arrival order.
type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Content     string
	Timestamp   time.Time
	IsRead      bool
}

// NewMessage creates a message with a server-assigned id and timestamp.
func NewMessage(senderID, recipientID uuid.UUID, content string) (*Message, error) {
	if content == "" {
		return nil, domain.NewValidationError("content", "is required")
	}
	if recipientID == uuid.Nil {
		return nil, domain.NewValidationError("recipient", "is required")
	}
	return &Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Timestamp:   time.Now().UTC(),
		IsRead:      false,
	}, nil
}

// Repository defines persistence for messages.
type Repository interface {
	Save(ctx context.Context, m *Message) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// ListThread returns the conversation between two users ordered by
	// timestamp.
	ListThread(ctx context.Context, userID, otherID uuid.UUID) ([]*Message, error)
	// ListForUser returns every message the user sent or received.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Message, error)
	// MarkThreadRead flags unread messages from otherID to userID as read.
	MarkThreadRead(ctx context.Context, userID, otherID uuid.UUID) error
}
