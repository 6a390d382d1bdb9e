package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/notification"
)

// NotificationDTO is the wire representation of a notification, shared
// by the REST surface and the realtime fan-out.
type NotificationDTO struct {
	ID         uuid.UUID               `json:"id"`
	UserID     uuid.UUID               `json:"user"`
	NotifType  string                  `json:"notif_type"`
	ObjectID   uuid.UUID               `json:"object_id"`
	ObjectData notification.ObjectData `json:"object_data"`
	Timestamp  time.Time               `json:"timestamp"`
	IsRead     bool                    `json:"is_read"`
}

func toNotificationDTO(n *notification.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         n.ID,
		UserID:     n.UserID,
		NotifType:  string(n.Target.Kind),
		ObjectID:   n.Target.PropertyID,
		ObjectData: n.ObjectData,
		Timestamp:  n.Timestamp,
		IsRead:     n.IsRead,
	}
}

// MarkReadRequest is the DTO for marking notifications read.
type MarkReadRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// NotificationService is the application service for notifications.
type NotificationService struct {
	repo   notification.Repository
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo notification.Repository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// Create stores a notification and returns its wire form.
func (s *NotificationService) Create(ctx context.Context, userID uuid.UUID, target notification.Target, data notification.ObjectData) (*NotificationDTO, error) {
	n := notification.New(userID, target, data)
	if err := s.repo.Save(ctx, n); err != nil {
		return nil, err
	}
	dto := toNotificationDTO(n)
	return &dto, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]NotificationDTO, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = toNotificationDTO(n)
	}
	return dtos, nil
}

// MarkRead flags the given notifications read. Notifications belonging
// to other users are untouched.
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, ids)
}
