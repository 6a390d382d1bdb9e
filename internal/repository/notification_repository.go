package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	notifDomain "github.com/homelet/service-classifieds/internal/domain/notification"
	"github.com/homelet/service-classifieds/pkg/database"
)

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	NotifType  string         `gorm:"type:varchar(20);not null"`
	PropertyID uuid.UUID      `gorm:"type:uuid;not null"`
	ObjectData datatypes.JSON `gorm:"type:jsonb"`
	Timestamp  time.Time      `gorm:"not null;index"`
	IsRead     bool           `gorm:"not null;default:false"`
}

// TableName sets the table name.
func (NotificationModel) TableName() string { return "notifications" }

// GormNotificationRepository implements notification.Repository using GORM.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository.
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Save persists a new notification.
func (r *GormNotificationRepository) Save(ctx context.Context, n *notifDomain.Notification) error {
	data, err := json.Marshal(n.ObjectData)
	if err != nil {
		return err
	}
	model := NotificationModel{
		ID:         n.ID,
		UserID:     n.UserID,
		NotifType:  string(n.Target.Kind),
		PropertyID: n.Target.PropertyID,
		ObjectData: datatypes.JSON(data),
		Timestamp:  n.Timestamp,
		IsRead:     n.IsRead,
	}
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// ListByUser returns the user's notifications, newest first.
func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*notifDomain.Notification, error) {
	var models []NotificationModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*notifDomain.Notification, len(models))
	for i, m := range models {
		var data notifDomain.ObjectData
		if len(m.ObjectData) > 0 {
			if err := json.Unmarshal(m.ObjectData, &data); err != nil {
				return nil, err
			}
		}
		out[i] = &notifDomain.Notification{
			ID:     m.ID,
			UserID: m.UserID,
			Target: notifDomain.Target{
				Kind:       notifDomain.Kind(m.NotifType),
				PropertyID: m.PropertyID,
			},
			ObjectData: data,
			Timestamp:  m.Timestamp,
			IsRead:     m.IsRead,
		}
	}
	return out, nil
}

// MarkRead flags the given notifications of the user as read.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return database.FromContext(ctx, r.db).WithContext(ctx).
		Model(&NotificationModel{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Update("is_read", true).Error
}
