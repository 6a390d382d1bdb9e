package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	subDomain "github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// PlanModel is the GORM model for the subscription_plans table.
type PlanModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Slug              string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DurationDays      int             `gorm:"not null"`
	FreeListings      int             `gorm:"not null;default:0"`
	UnlimitedListings bool            `gorm:"not null;default:false"`
	Perks             datatypes.JSON  `gorm:"type:jsonb"`
	IsActive          bool            `gorm:"not null;default:true"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName sets the table name.
func (PlanModel) TableName() string { return "subscription_plans" }

// UserSubscriptionModel is the GORM model for the user_subscriptions table.
type UserSubscriptionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	PlanID    uuid.UUID `gorm:"type:uuid;not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (UserSubscriptionModel) TableName() string { return "user_subscriptions" }

// GormPlanRepository implements subscription.PlanRepository using GORM.
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository.
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// Save persists a new plan.
func (r *GormPlanRepository) Save(ctx context.Context, p *subDomain.Plan) error {
	model, err := toPlanModel(p)
	if err != nil {
		return err
	}
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// FindByID returns a plan by ID.
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*subDomain.Plan, error) {
	var model PlanModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("SubscriptionPlan", id.String())
		}
		return nil, err
	}
	return toPlanDomain(&model)
}

// FindBySlug returns a plan by its slug.
func (r *GormPlanRepository) FindBySlug(ctx context.Context, slug string) (*subDomain.Plan, error) {
	var model PlanModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("SubscriptionPlan", slug)
		}
		return nil, err
	}
	return toPlanDomain(&model)
}

// ListActive returns all purchasable plans.
func (r *GormPlanRepository) ListActive(ctx context.Context) ([]*subDomain.Plan, error) {
	var models []PlanModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("is_active = ?", true).Order("price ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	plans := make([]*subDomain.Plan, len(models))
	for i := range models {
		p, err := toPlanDomain(&models[i])
		if err != nil {
			return nil, err
		}
		plans[i] = p
	}
	return plans, nil
}

// GormSubscriptionRepository implements subscription.Repository using GORM.
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository.
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Save persists a new subscription.
func (r *GormSubscriptionRepository) Save(ctx context.Context, s *subDomain.UserSubscription) error {
	model := toSubModel(s)
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// Update updates a subscription.
func (r *GormSubscriptionRepository) Update(ctx context.Context, s *subDomain.UserSubscription) error {
	model := toSubModel(s)
	return database.FromContext(ctx, r.db).WithContext(ctx).Save(&model).Error
}

// Delete removes a subscription. Used only by the compensating rollback
// when gateway initialization fails.
func (r *GormSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.FromContext(ctx, r.db).WithContext(ctx).Delete(&UserSubscriptionModel{}, "id = ?", id).Error
}

// FindByID returns a subscription by ID.
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*subDomain.UserSubscription, error) {
	var model UserSubscriptionModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("UserSubscription", id.String())
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// FindActiveByUserID returns every active subscription for the user.
func (r *GormSubscriptionRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*subDomain.UserSubscription, error) {
	var models []UserSubscriptionModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	subs := make([]*subDomain.UserSubscription, len(models))
	for i := range models {
		subs[i] = toSubDomain(&models[i])
	}
	return subs, nil
}

// FindLapsed returns active-flagged subscriptions whose period has ended.
func (r *GormSubscriptionRepository) FindLapsed(ctx context.Context, limit int) ([]*subDomain.UserSubscription, error) {
	var models []UserSubscriptionModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("is_active = ? AND end_date <= ?", true, time.Now().UTC()).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	subs := make([]*subDomain.UserSubscription, len(models))
	for i := range models {
		subs[i] = toSubDomain(&models[i])
	}
	return subs, nil
}

func toPlanModel(p *subDomain.Plan) (PlanModel, error) {
	perks, err := json.Marshal(p.Perks())
	if err != nil {
		return PlanModel{}, err
	}
	return PlanModel{
		ID:                p.ID(),
		Slug:              p.Slug(),
		Price:             p.Price(),
		DurationDays:      p.DurationDays(),
		FreeListings:      p.FreeListings(),
		UnlimitedListings: p.Unlimited(),
		Perks:             datatypes.JSON(perks),
		IsActive:          p.IsActive(),
		CreatedAt:         p.CreatedAt(),
	}, nil
}

func toPlanDomain(m *PlanModel) (*subDomain.Plan, error) {
	var perks []subDomain.Perk
	if len(m.Perks) > 0 {
		if err := json.Unmarshal(m.Perks, &perks); err != nil {
			return nil, err
		}
	}
	return subDomain.ReconstructPlan(
		m.ID, m.Slug, m.Price, m.DurationDays, m.FreeListings,
		m.UnlimitedListings, perks, m.IsActive, m.CreatedAt,
	), nil
}

func toSubModel(s *subDomain.UserSubscription) UserSubscriptionModel {
	return UserSubscriptionModel{
		ID:        s.ID(),
		UserID:    s.UserID(),
		PlanID:    s.PlanID(),
		StartDate: s.StartDate(),
		EndDate:   s.EndDate(),
		IsActive:  s.IsActive(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

func toSubDomain(m *UserSubscriptionModel) *subDomain.UserSubscription {
	return subDomain.ReconstructUserSubscription(
		m.ID, m.UserID, m.PlanID, m.StartDate, m.EndDate,
		m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
}
