package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	paymentDomain "github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// ListingPaymentModel is the GORM model for the listing_payments table.
type ListingPaymentModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PropertyID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PromoID    *uuid.UUID      `gorm:"type:uuid;index"`
	PaymentRef string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName sets the table name.
func (ListingPaymentModel) TableName() string { return "listing_payments" }

// SubscriptionPaymentModel is the GORM model for the subscription_payments table.
type SubscriptionPaymentModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SubscriptionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PromoID        *uuid.UUID      `gorm:"type:uuid;index"`
	PaymentRef     string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName sets the table name.
func (SubscriptionPaymentModel) TableName() string { return "subscription_payments" }

// GormListingPaymentRepository implements payment.ListingPaymentRepository.
type GormListingPaymentRepository struct {
	db *gorm.DB
}

// NewGormListingPaymentRepository creates a new GormListingPaymentRepository.
func NewGormListingPaymentRepository(db *gorm.DB) *GormListingPaymentRepository {
	return &GormListingPaymentRepository{db: db}
}

// Save persists a new listing payment.
func (r *GormListingPaymentRepository) Save(ctx context.Context, p *paymentDomain.ListingPayment) error {
	model := toListingPaymentModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// Update updates a listing payment.
func (r *GormListingPaymentRepository) Update(ctx context.Context, p *paymentDomain.ListingPayment) error {
	model := toListingPaymentModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Save(&model).Error
}

// FindByReference returns the payment holding the gateway reference.
func (r *GormListingPaymentRepository) FindByReference(ctx context.Context, reference string) (*paymentDomain.ListingPayment, error) {
	return r.findByReference(ctx, reference, false)
}

// FindByReferenceForUpdate loads the payment holding an exclusive row
// lock. It must run inside database.InTx; the lock serializes racing
// verifications of the same reference.
func (r *GormListingPaymentRepository) FindByReferenceForUpdate(ctx context.Context, reference string) (*paymentDomain.ListingPayment, error) {
	return r.findByReference(ctx, reference, true)
}

func (r *GormListingPaymentRepository) findByReference(ctx context.Context, reference string, forUpdate bool) (*paymentDomain.ListingPayment, error) {
	q := database.FromContext(ctx, r.db).WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model ListingPaymentModel
	if err := q.Where("payment_ref = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("ListingPayment", reference)
		}
		return nil, err
	}
	return toListingPaymentDomain(&model), nil
}

// ExistsForUserAndPromo reports whether the user already holds any
// listing payment referencing the promo.
func (r *GormListingPaymentRepository) ExistsForUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (bool, error) {
	var count int64
	err := database.FromContext(ctx, r.db).WithContext(ctx).
		Model(&ListingPaymentModel{}).
		Where("user_id = ? AND promo_id = ?", userID, promoID).
		Count(&count).Error
	return count > 0, err
}

// GormSubscriptionPaymentRepository implements payment.SubscriptionPaymentRepository.
type GormSubscriptionPaymentRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionPaymentRepository creates a new GormSubscriptionPaymentRepository.
func NewGormSubscriptionPaymentRepository(db *gorm.DB) *GormSubscriptionPaymentRepository {
	return &GormSubscriptionPaymentRepository{db: db}
}

// Save persists a new subscription payment.
func (r *GormSubscriptionPaymentRepository) Save(ctx context.Context, p *paymentDomain.SubscriptionPayment) error {
	model := toSubscriptionPaymentModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Create(&model).Error
}

// Update updates a subscription payment.
func (r *GormSubscriptionPaymentRepository) Update(ctx context.Context, p *paymentDomain.SubscriptionPayment) error {
	model := toSubscriptionPaymentModel(p)
	return database.FromContext(ctx, r.db).WithContext(ctx).Save(&model).Error
}

// Delete removes a subscription payment. Used only by the compensating
// rollback when gateway initialization fails.
func (r *GormSubscriptionPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.FromContext(ctx, r.db).WithContext(ctx).Delete(&SubscriptionPaymentModel{}, "id = ?", id).Error
}

// FindByReference returns the payment holding the gateway reference.
func (r *GormSubscriptionPaymentRepository) FindByReference(ctx context.Context, reference string) (*paymentDomain.SubscriptionPayment, error) {
	return r.findByReference(ctx, reference, false)
}

// FindByReferenceForUpdate loads the payment holding an exclusive row
// lock, serializing racing verifications of the same reference.
func (r *GormSubscriptionPaymentRepository) FindByReferenceForUpdate(ctx context.Context, reference string) (*paymentDomain.SubscriptionPayment, error) {
	return r.findByReference(ctx, reference, true)
}

func (r *GormSubscriptionPaymentRepository) findByReference(ctx context.Context, reference string, forUpdate bool) (*paymentDomain.SubscriptionPayment, error) {
	q := database.FromContext(ctx, r.db).WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model SubscriptionPaymentModel
	if err := q.Where("payment_ref = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("SubscriptionPayment", reference)
		}
		return nil, err
	}
	return toSubscriptionPaymentDomain(&model), nil
}

// ExistsSuccessfulForUserAndPromo reports whether the user already holds
// a successful subscription payment referencing the promo.
func (r *GormSubscriptionPaymentRepository) ExistsSuccessfulForUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (bool, error) {
	var count int64
	err := database.FromContext(ctx, r.db).WithContext(ctx).
		Model(&SubscriptionPaymentModel{}).
		Where("user_id = ? AND promo_id = ? AND status = ?", userID, promoID, string(paymentDomain.StatusSuccess)).
		Count(&count).Error
	return count > 0, err
}

// ListByUser returns the user's subscription payments, newest first.
func (r *GormSubscriptionPaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*paymentDomain.SubscriptionPayment, int64, error) {
	db := database.FromContext(ctx, r.db).WithContext(ctx)

	var total int64
	if err := db.Model(&SubscriptionPaymentModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []SubscriptionPaymentModel
	offset := (page - 1) * limit
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*paymentDomain.SubscriptionPayment, len(models))
	for i := range models {
		payments[i] = toSubscriptionPaymentDomain(&models[i])
	}
	return payments, total, nil
}

func toListingPaymentModel(p *paymentDomain.ListingPayment) ListingPaymentModel {
	return ListingPaymentModel{
		ID:         p.ID(),
		UserID:     p.UserID(),
		PropertyID: p.PropertyID(),
		Amount:     p.Amount(),
		PromoID:    p.PromoID(),
		PaymentRef: p.PaymentRef(),
		Status:     string(p.Status()),
		CreatedAt:  p.CreatedAt(),
		UpdatedAt:  p.UpdatedAt(),
	}
}

func toListingPaymentDomain(m *ListingPaymentModel) *paymentDomain.ListingPayment {
	return paymentDomain.ReconstructListingPayment(
		m.ID, m.UserID, m.PropertyID, m.Amount, m.PromoID,
		m.PaymentRef, paymentDomain.Status(m.Status), m.CreatedAt, m.UpdatedAt,
	)
}

func toSubscriptionPaymentModel(p *paymentDomain.SubscriptionPayment) SubscriptionPaymentModel {
	return SubscriptionPaymentModel{
		ID:             p.ID(),
		UserID:         p.UserID(),
		SubscriptionID: p.SubscriptionID(),
		Amount:         p.Amount(),
		PromoID:        p.PromoID(),
		PaymentRef:     p.PaymentRef(),
		Status:         string(p.Status()),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
}

func toSubscriptionPaymentDomain(m *SubscriptionPaymentModel) *paymentDomain.SubscriptionPayment {
	return paymentDomain.ReconstructSubscriptionPayment(
		m.ID, m.UserID, m.SubscriptionID, m.Amount, m.PromoID,
		m.PaymentRef, paymentDomain.Status(m.Status), m.CreatedAt, m.UpdatedAt,
	)
}
