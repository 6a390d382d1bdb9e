package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/adapter"
	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/internal/domain/notification"
	"github.com/homelet/service-classifieds/internal/domain/user"
	"github.com/homelet/service-classifieds/internal/ws"
	"github.com/homelet/service-classifieds/pkg/events"
	"github.com/homelet/service-classifieds/pkg/kafka"
)

// NotificationConsumer subscribes to the classifieds event stream and
// turns domain events into stored notifications, live socket frames and
// best-effort push deliveries. It runs inside the API binary; delivery
// failures never reach back into the write path that emitted the event.
type NotificationConsumer struct {
	consumer *kafka.Consumer
	notifSvc *application.NotificationService
	userRepo user.Repository
	hub      *ws.Hub
	push     adapter.PushSender
	logger   *zap.Logger
}

// NewNotificationConsumer creates a new NotificationConsumer.
func NewNotificationConsumer(
	consumer *kafka.Consumer,
	notifSvc *application.NotificationService,
	userRepo user.Repository,
	hub *ws.Hub,
	push adapter.PushSender,
	logger *zap.Logger,
) *NotificationConsumer {
	return &NotificationConsumer{
		consumer: consumer,
		notifSvc: notifSvc,
		userRepo: userRepo,
		hub:      hub,
		push:     push,
		logger:   logger,
	}
}

// Start consumes until the context is cancelled.
func (c *NotificationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *NotificationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to parse cloud event: %w", err)
	}

	switch ce.Type {
	case events.PropertyVerified:
		var event events.PropertyVerifiedEvent
		if err := ce.ParseData(&event); err != nil {
			return err
		}
		return c.handlePropertyVerified(ctx, event)

	case events.PropertyFavorited:
		var event events.PropertyFavoritedEvent
		if err := ce.ParseData(&event); err != nil {
			return err
		}
		return c.handlePropertyFavorited(ctx, event)

	case events.MessageSent:
		var event events.MessageSentEvent
		if err := ce.ParseData(&event); err != nil {
			return err
		}
		return c.handleMessageSent(ctx, event)

	case events.SubscriptionActivated:
		// No user-facing notification; logged for audit.
		c.logger.Info("subscription activated event", zap.String("event_id", ce.ID))
		return nil

	default:
		c.logger.Debug("ignoring event", zap.String("type", ce.Type))
		return nil
	}
}

func (c *NotificationConsumer) handlePropertyVerified(ctx context.Context, event events.PropertyVerifiedEvent) error {
	dto, err := c.notifSvc.Create(ctx, event.OwnerID,
		notification.Target{Kind: notification.KindVerified, PropertyID: event.PropertyID},
		notification.ObjectData{Title: event.PropertyTitle, Slug: event.PropertySlug},
	)
	if err != nil {
		return err
	}

	c.hub.Publish(ws.GroupNotifications(event.OwnerID), dto)
	c.pushToUser(ctx, event.OwnerID,
		"Property verified",
		fmt.Sprintf("Your property %q is now live.", event.PropertyTitle),
		map[string]string{"notif_type": string(notification.KindVerified), "slug": event.PropertySlug},
	)
	return nil
}

func (c *NotificationConsumer) handlePropertyFavorited(ctx context.Context, event events.PropertyFavoritedEvent) error {
	dto, err := c.notifSvc.Create(ctx, event.OwnerID,
		notification.Target{Kind: notification.KindFavorite, PropertyID: event.PropertyID},
		notification.ObjectData{Title: event.PropertyTitle, Slug: event.PropertySlug},
	)
	if err != nil {
		return err
	}

	c.hub.Publish(ws.GroupNotifications(event.OwnerID), dto)
	c.pushToUser(ctx, event.OwnerID,
		"New favorite",
		fmt.Sprintf("%s saved your property %q.", event.ActorName, event.PropertyTitle),
		map[string]string{"notif_type": string(notification.KindFavorite), "slug": event.PropertySlug},
	)
	return nil
}

// handleMessageSent covers the push fallback for chat. Live socket
// delivery happens inline in the chat handler when the message arrives;
// this path reaches devices with no open connection.
func (c *NotificationConsumer) handleMessageSent(ctx context.Context, event events.MessageSentEvent) error {
	c.pushToUser(ctx, event.RecipientID,
		event.SenderName,
		event.Content,
		map[string]string{"sender": event.SenderID.String()},
	)
	return nil
}

func (c *NotificationConsumer) pushToUser(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	tokens, err := c.userRepo.ListDeviceTokens(ctx, userID)
	if err != nil {
		c.logger.Warn("failed to load device tokens", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = t.Token
	}
	if err := c.push.Send(ctx, values, title, body, data); err != nil {
		c.logger.Warn("push fan-out failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
