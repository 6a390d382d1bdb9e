package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates notification targets. It replaces the original
// polymorphic content-object reference with an explicit tagged union.
type Kind string

const (
	// KindVerified: the user's property passed verification.
	KindVerified Kind = "verified"
	// KindFavorite: someone saved the user's property.
	KindFavorite Kind = "favorite"
)

// Target identifies what a notification is about. Both kinds currently
// point at a property; the kind decides how the client renders it.
type Target struct {
	Kind       Kind
	PropertyID uuid.UUID
}

// ObjectData is the denormalized display payload delivered with the
// notification so clients need no follow-up fetch.
type ObjectData struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Notification is a system notification delivered to one user.
type Notification struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Target     Target
	ObjectData ObjectData
	Timestamp  time.Time
	IsRead     bool
}

// New creates a notification.
func New(userID uuid.UUID, target Target, data ObjectData) *Notification {
	return &Notification{
		ID:         uuid.New(),
		UserID:     userID,
		Target:     target,
		ObjectData: data,
		Timestamp:  time.Now().UTC(),
		IsRead:     false,
	}
}

// Repository defines persistence for notifications.
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
}
