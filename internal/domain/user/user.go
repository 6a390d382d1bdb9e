package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the read-side account projection this service needs. Account
// management and token issuance live in the identity service.
type User struct {
	ID          uuid.UUID
	Username    string
	Email       string
	PhoneNumber string
	AccountType string
	CreatedAt   time.Time
}

// DeviceToken is a registered mobile push token.
type DeviceToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Platform  string
	CreatedAt time.Time
}

// Repository defines read operations over users and their push tokens.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error)
	SaveDeviceToken(ctx context.Context, t *DeviceToken) error
}
