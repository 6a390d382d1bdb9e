package events

import (
	"time"

	"github.com/google/uuid"
)

// EventSource identifies this service in CloudEvent envelopes.
const EventSource = "service-classifieds"

// TopicClassifiedsEvents is the Kafka topic carrying all domain events.
const TopicClassifiedsEvents = "classifieds.events"

// Event type identifiers.
const (
	PropertyVerified      = "classifieds.property.verified"
	PropertyFavorited     = "classifieds.property.favorited"
	SubscriptionActivated = "classifieds.subscription.activated"
	MessageSent           = "classifieds.message.sent"
)

// PropertyVerifiedEvent is published when an admin marks a listing verified.
type PropertyVerifiedEvent struct {
	PropertyID    uuid.UUID `json:"property_id"`
	PropertyTitle string    `json:"property_title"`
	PropertySlug  string    `json:"property_slug"`
	OwnerID       uuid.UUID `json:"owner_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PropertyFavoritedEvent is published when a user saves a listing.
type PropertyFavoritedEvent struct {
	PropertyID    uuid.UUID `json:"property_id"`
	PropertyTitle string    `json:"property_title"`
	PropertySlug  string    `json:"property_slug"`
	OwnerID       uuid.UUID `json:"owner_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	ActorName     string    `json:"actor_name"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SubscriptionActivatedEvent is published when a subscription payment is
// verified and the subscription is activated or extended.
type SubscriptionActivatedEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	PlanSlug       string    `json:"plan_slug"`
	EndDate        time.Time `json:"end_date"`
	Renewed        bool      `json:"renewed"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// MessageSentEvent is published when a chat message is stored.
type MessageSentEvent struct {
	MessageID   uuid.UUID `json:"message_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
	OccurredAt  time.Time `json:"occurred_at"`
}
