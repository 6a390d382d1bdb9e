package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	promoDomain "github.com/homelet/service-classifieds/internal/domain/promo"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// PromoModel is the GORM model for the promo_codes table.
type PromoModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code            string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	DiscountPercent int        `gorm:"not null"`
	UsageLimit      int        `gorm:"not null"`
	UsedCount       int        `gorm:"not null;default:0"`
	IsActive        bool       `gorm:"not null;default:true"`
	ExpiresAt       *time.Time `gorm:"type:timestamptz"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName sets the table name.
func (PromoModel) TableName() string { return "promo_codes" }

// GormPromoRepository implements promo.Repository using GORM.
type GormPromoRepository struct {
	db *gorm.DB
}

// NewGormPromoRepository creates a new GormPromoRepository.
func NewGormPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// Save persists a new promo code.
func (r *GormPromoRepository) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	model := toPromoModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// Update updates a promo code.
func (r *GormPromoRepository) Update(ctx context.Context, p *promoDomain.PromoCode) error {
	model := toPromoModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Save(&model).Error
}

// FindByCode looks up a promo code case-insensitively.
func (r *GormPromoRepository) FindByCode(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	return r.findByCode(ctx, code, false)
}

// FindByCodeForUpdate looks up a promo code holding an exclusive row
// lock. It must run inside database.InTx; the lock serializes every
// check-then-increment on the usage ledger.
func (r *GormPromoRepository) FindByCodeForUpdate(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	return r.findByCode(ctx, code, true)
}

func (r *GormPromoRepository) findByCode(ctx context.Context, code string, forUpdate bool) (*promoDomain.PromoCode, error) {
	q := database.FromContext(ctx, r.db).WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model PromoModel
	if err := q.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, promoDomain.ErrNotFound
		}
		return nil, err
	}
	return toPromoDomain(&model), nil
}

// FindByID returns a promo code by ID.
func (r *GormPromoRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	var model PromoModel
	if err := database.FromContext(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PromoCode", id.String())
		}
		return nil, err
	}
	return toPromoDomain(&model), nil
}

// ListActive returns all currently active promo codes.
func (r *GormPromoRepository) ListActive(ctx context.Context) ([]*promoDomain.PromoCode, error) {
	var models []PromoModel
	now := time.Now().UTC()
	if err := database.FromContext(ctx, r.db).WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Find(&models).Error; err != nil {
		return nil, err
	}

	promos := make([]*promoDomain.PromoCode, len(models))
	for i, m := range models {
		promos[i] = toPromoDomain(&m)
	}
	return promos, nil
}

func toPromoModel(p *promoDomain.PromoCode) PromoModel {
	return PromoModel{
		ID:              p.ID(),
		Code:            p.Code(),
		DiscountPercent: p.DiscountPercent(),
		UsageLimit:      p.UsageLimit(),
		UsedCount:       p.UsedCount(),
		IsActive:        p.IsActive(),
		ExpiresAt:       p.ExpiresAt(),
		CreatedAt:       p.CreatedAt(),
		UpdatedAt:       p.UpdatedAt(),
	}
}

func toPromoDomain(m *PromoModel) *promoDomain.PromoCode {
	return promoDomain.Reconstruct(
		m.ID, m.Code, m.DiscountPercent, m.UsageLimit, m.UsedCount,
		m.IsActive, m.ExpiresAt, m.CreatedAt, m.UpdatedAt,
	)
}
