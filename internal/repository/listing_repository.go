package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	listingDomain "github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// PropertyModel is the GORM model for the properties table.
type PropertyModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CreatorID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title         string          `gorm:"type:varchar(255);not null"`
	Slug          string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	Description   string          `gorm:"type:text"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IsVerified    bool            `gorm:"not null;default:false;index"`
	IsFeatured    bool            `gorm:"not null;default:false"`
	IsRecommended bool            `gorm:"not null;default:false"`
	IsPromoted    bool            `gorm:"not null;default:false"`
	ExpiryDate    time.Time       `gorm:"not null"`
	VisitCount    int64           `gorm:"not null;default:0"`
	DatePosted    time.Time       `gorm:"not null;index"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName sets the table name.
func (PropertyModel) TableName() string { return "properties" }

// FavoriteModel is the GORM model for the saved_properties table.
type FavoriteModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_fav_user_property"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_fav_user_property"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (FavoriteModel) TableName() string { return "saved_properties" }

// GormPropertyRepository implements listing.Repository using GORM.
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository.
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// Save persists a new property.
func (r *GormPropertyRepository) Save(ctx context.Context, p *listingDomain.Property) error {
	model := toPropertyModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// Update updates a property.
func (r *GormPropertyRepository) Update(ctx context.Context, p *listingDomain.Property) error {
	model := toPropertyModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Save(&model).Error
}

// FindByID returns a property by ID.
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*listingDomain.Property, error) {
	var model PropertyModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, err
	}
	return toPropertyDomain(&model), nil
}

// ListByCreator returns all of a user's properties, newest first.
func (r *GormPropertyRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*listingDomain.Property, error) {
	var models []PropertyModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("date_posted DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	props := make([]*listingDomain.Property, len(models))
	for i := range models {
		props[i] = toPropertyDomain(&models[i])
	}
	return props, nil
}

// CountByCreatorSince counts properties posted since the given date.
func (r *GormPropertyRepository) CountByCreatorSince(ctx context.Context, creatorID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := database.FromContext(ctx, r.db).WithContext(ctx).
		Model(&PropertyModel{}).
		Where("creator_id = ? AND date_posted >= ?", creatorID, since).
		Count(&count).Error
	return count, err
}

// FindExpiredVerified returns verified properties past their expiry date.
func (r *GormPropertyRepository) FindExpiredVerified(ctx context.Context, limit int) ([]*listingDomain.Property, error) {
	var models []PropertyModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("is_verified = ? AND expiry_date <= ?", true, time.Now().UTC()).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	props := make([]*listingDomain.Property, len(models))
	for i := range models {
		props[i] = toPropertyDomain(&models[i])
	}
	return props, nil
}

// GormFavoriteRepository implements listing.FavoriteRepository using GORM.
type GormFavoriteRepository struct {
	db *gorm.DB
}

// NewGormFavoriteRepository creates a new GormFavoriteRepository.
func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

// Save inserts the favorite, reporting created=false when the
// (user, property) pair already exists.
func (r *GormFavoriteRepository) Save(ctx context.Context, f *listingDomain.Favorite) (bool, error) {
	model := FavoriteModel{
		ID:         f.ID,
		UserID:     f.UserID,
		PropertyID: f.PropertyID,
		CreatedAt:  f.CreatedAt,
	}
	result := database.FromContext(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a favorite.
func (r *GormFavoriteRepository) Delete(ctx context.Context, userID, propertyID uuid.UUID) error {
	return database.FromContext(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&FavoriteModel{}).Error
}

// ListByUser returns the user's saved properties.
func (r *GormFavoriteRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*listingDomain.Favorite, error) {
	var models []FavoriteModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	favs := make([]*listingDomain.Favorite, len(models))
	for i, m := range models {
		favs[i] = &listingDomain.Favorite{
			ID: m.ID, UserID: m.UserID, PropertyID: m.PropertyID, CreatedAt: m.CreatedAt,
		}
	}
	return favs, nil
}

func toPropertyModel(p *listingDomain.Property) PropertyModel {
	badges := p.BadgeFlags()
	return PropertyModel{
		ID:            p.ID(),
		CreatorID:     p.CreatorID(),
		Title:         p.Title(),
		Slug:          p.Slug(),
		Description:   p.Description(),
		Price:         p.Price(),
		IsVerified:    p.IsVerified(),
		IsFeatured:    badges.Featured,
		IsRecommended: badges.Recommended,
		IsPromoted:    badges.Promoted,
		ExpiryDate:    p.ExpiryDate(),
		VisitCount:    p.VisitCount(),
		DatePosted:    p.DatePosted(),
		UpdatedAt:     p.UpdatedAt(),
	}
}

func toPropertyDomain(m *PropertyModel) *listingDomain.Property {
	return listingDomain.Reconstruct(
		m.ID, m.CreatorID, m.Title, m.Slug, m.Description, m.Price,
		m.IsVerified,
		listingDomain.Badges{Featured: m.IsFeatured, Recommended: m.IsRecommended, Promoted: m.IsPromoted},
		m.ExpiryDate, m.VisitCount, m.DatePosted, m.UpdatedAt,
	)
}
