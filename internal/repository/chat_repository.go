package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	chatDomain "github.com/homelet/service-classifieds/internal/domain/chat"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index"`
	Content     string    `gorm:"type:text;not null"`
	Timestamp   time.Time `gorm:"not null;index"`
	IsRead      bool      `gorm:"not null;default:false"`
}

// TableName sets the table name.
func (MessageModel) TableName() string { return "messages" }

// GormMessageRepository implements chat.Repository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Save persists a new message.
func (r *GormMessageRepository) Save(ctx context.Context, m *chatDomain.Message) error {
	model := toMessageModel(m)
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// Delete removes a message.
func (r *GormMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.FromContext(ctx, r.db).WithContext(ctx).Delete(&MessageModel{}, "id = ?", id).Error
}

// FindByID returns a message by ID.
func (r *GormMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*chatDomain.Message, error) {
	var model MessageModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Message", id.String())
		}
		return nil, err
	}
	return toMessageDomain(&model), nil
}

// ListThread returns the conversation between two users in timestamp order.
func (r *GormMessageRepository) ListThread(ctx context.Context, userID, otherID uuid.UUID) ([]*chatDomain.Message, error) {
	var models []MessageModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, otherID, otherID, userID).
		Order("timestamp ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toMessageDomains(models), nil
}

// ListForUser returns every message the user sent or received.
func (r *GormMessageRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*chatDomain.Message, error) {
	var models []MessageModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("timestamp ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toMessageDomains(models), nil
}

// MarkThreadRead flags unread messages from otherID to userID as read.
func (r *GormMessageRepository) MarkThreadRead(ctx context.Context, userID, otherID uuid.UUID) error {
	return database.FromContext(ctx, r.db).WithContext(ctx).
		Model(&MessageModel{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", userID, otherID, false).
		Update("is_read", true).Error
}

func toMessageModel(m *chatDomain.Message) MessageModel {
	return MessageModel{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		IsRead:      m.IsRead,
	}
}

func toMessageDomain(m *MessageModel) *chatDomain.Message {
	return &chatDomain.Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		IsRead:      m.IsRead,
	}
}

func toMessageDomains(models []MessageModel) []*chatDomain.Message {
	out := make([]*chatDomain.Message, len(models))
	for i := range models {
		out[i] = toMessageDomain(&models[i])
	}
	return out
}
