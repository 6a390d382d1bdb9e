package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	userDomain "github.com/homelet/service-classifieds/internal/domain/user"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username    string    `gorm:"type:varchar(150);uniqueIndex;not null"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PhoneNumber string    `gorm:"type:varchar(20)"`
	AccountType string    `gorm:"type:varchar(20);not null;default:'regular'"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (UserModel) TableName() string { return "users" }

// DeviceTokenModel is the GORM model for the device_tokens table.
type DeviceTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Platform  string    `gorm:"type:varchar(20)"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (DeviceTokenModel) TableName() string { return "device_tokens" }

// GormUserRepository implements user.Repository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID returns a user by ID.
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	var model UserModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id.String())
		}
		return nil, err
	}
	return &userDomain.User{
		ID:          model.ID,
		Username:    model.Username,
		Email:       model.Email,
		PhoneNumber: model.PhoneNumber,
		AccountType: model.AccountType,
		CreatedAt:   model.CreatedAt,
	}, nil
}

// ListDeviceTokens returns every registered push token for the user.
func (r *GormUserRepository) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*userDomain.DeviceToken, error) {
	var models []DeviceTokenModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, err
	}

	tokens := make([]*userDomain.DeviceToken, len(models))
	for i, m := range models {
		tokens[i] = &userDomain.DeviceToken{
			ID: m.ID, UserID: m.UserID, Token: m.Token,
			Platform: m.Platform, CreatedAt: m.CreatedAt,
		}
	}
	return tokens, nil
}

// SaveDeviceToken upserts a push token registration.
func (r *GormUserRepository) SaveDeviceToken(ctx context.Context, t *userDomain.DeviceToken) error {
	model := DeviceTokenModel{
		ID: t.ID, UserID: t.UserID, Token: t.Token,
		Platform: t.Platform, CreatedAt: t.CreatedAt,
	}
	return database.FromContext(ctx, r.db).WithContext(ctx).
		Where("token = ?", t.Token).
		Assign(map[string]interface{}{"user_id": t.UserID, "platform": t.Platform}).
		FirstOrCreate(&model).Error
}
