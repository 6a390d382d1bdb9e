package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/internal/domain/user"
	"github.com/homelet/service-classifieds/pkg/domain"
	"github.com/homelet/service-classifieds/pkg/events"
	"github.com/homelet/service-classifieds/pkg/kafka"
)

// CreatePropertyRequest is the DTO for creating a listing.
type CreatePropertyRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

// PropertyDTO is the API response DTO for property data.
type PropertyDTO struct {
	ID            uuid.UUID       `json:"id"`
	CreatorID     uuid.UUID       `json:"creator_id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	IsVerified    bool            `json:"is_verified"`
	IsFeatured    bool            `json:"is_featured"`
	IsRecommended bool            `json:"is_recommended"`
	IsPromoted    bool            `json:"is_promoted"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	VisitCount    int64           `json:"visit_count"`
	DatePosted    time.Time       `json:"date_posted"`
	// PaymentRequired is set on creation when the creator has no free
	// listing quota left and must pay to publish.
	PaymentRequired bool `json:"payment_required,omitempty"`
}

func toPropertyDTO(p *listing.Property) PropertyDTO {
	badges := p.BadgeFlags()
	return PropertyDTO{
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
	}
}

// PropertyService is the application service for property listings.
type PropertyService struct {
	propertyRepo listing.Repository
	favRepo      listing.FavoriteRepository
	subRepo      subscription.Repository
	planRepo     subscription.PlanRepository
	quotaSvc     *QuotaService
	userRepo     user.Repository
	producer     *kafka.Producer
	logger       *zap.Logger
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(
	propertyRepo listing.Repository,
	favRepo listing.FavoriteRepository,
	subRepo subscription.Repository,
	planRepo subscription.PlanRepository,
	quotaSvc *QuotaService,
	userRepo user.Repository,
	producer *kafka.Producer,
	logger *zap.Logger,
) *PropertyService {
	return &PropertyService{
		propertyRepo: propertyRepo,
		favRepo:      favRepo,
		subRepo:      subRepo,
		planRepo:     planRepo,
		quotaSvc:     quotaSvc,
		userRepo:     userRepo,
		producer:     producer,
		logger:       logger,
	}
}

// Create posts a new listing. Perk badges come from the creator's
// currently active plans; the response flags payment_required when the
// creator has exhausted their free quota.
func (s *PropertyService) Create(ctx context.Context, userID uuid.UUID, req CreatePropertyRequest) (*PropertyDTO, error) {
	hasQuota, err := s.quotaSvc.HasFreeQuota(ctx, userID)
	if err != nil {
		return nil, err
	}

	badges, err := s.activeBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	property, err := listing.NewProperty(userID, req.Title, req.Description, req.Price, badges)
	if err != nil {
		return nil, err
	}
	if err := s.propertyRepo.Save(ctx, property); err != nil {
		return nil, err
	}

	s.logger.Info("property created",
		zap.String("property_id", property.ID().String()),
		zap.String("slug", property.Slug()),
		zap.Bool("payment_required", !hasQuota),
	)

	dto := toPropertyDTO(property)
	dto.PaymentRequired = !hasQuota
	return &dto, nil
}

// activeBadges ORs the perks of every currently active plan.
func (s *PropertyService) activeBadges(ctx context.Context, userID uuid.UUID) (listing.Badges, error) {
	var badges listing.Badges
	now := time.Now().UTC()

	subs, err := s.subRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return badges, err
	}
	for _, sub := range subs {
		if !sub.IsCurrent(now) {
			continue
		}
		plan, err := s.planRepo.FindByID(ctx, sub.PlanID())
		if err != nil {
			return badges, err
		}
		badges.Featured = badges.Featured || plan.HasPerk(subscription.PerkFeatured)
		badges.Recommended = badges.Recommended || plan.HasPerk(subscription.PerkRecommended)
		badges.Promoted = badges.Promoted || plan.HasPerk(subscription.PerkPromoted)
	}
	return badges, nil
}

// Get returns one property. Non-owners only see visible listings, and
// their visits increment the counter.
func (s *PropertyService) Get(ctx context.Context, viewerID, propertyID uuid.UUID) (*PropertyDTO, error) {
	property, err := s.propertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if property.CreatorID() != viewerID {
		if !property.IsVisible(time.Now().UTC()) {
			return nil, domain.NewNotFoundError("Property", propertyID.String())
		}
		property.RecordVisit()
		if err := s.propertyRepo.Update(ctx, property); err != nil {
			s.logger.Warn("failed to record visit", zap.Error(err))
		}
	}

	dto := toPropertyDTO(property)
	return &dto, nil
}

// MyProperties returns every listing the user created, visible or not.
func (s *PropertyService) MyProperties(ctx context.Context, userID uuid.UUID) ([]PropertyDTO, error) {
	properties, err := s.propertyRepo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	dtos := make([]PropertyDTO, len(properties))
	for i, p := range properties {
		dtos[i] = toPropertyDTO(p)
	}
	return dtos, nil
}

// Favorite saves a property for the user. The first save notifies the
// owner; repeats are idempotent and silent.
func (s *PropertyService) Favorite(ctx context.Context, userID, propertyID uuid.UUID) error {
	property, err := s.propertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		return err
	}

	created, err := s.favRepo.Save(ctx, &listing.Favorite{
		ID:         uuid.New(),
		UserID:     userID,
		PropertyID: propertyID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if created && property.CreatorID() != userID {
		actorName := ""
		if actor, err := s.userRepo.FindByID(ctx, userID); err == nil {
			actorName = actor.Username
		}
		s.publish(ctx, events.PropertyFavorited, events.PropertyFavoritedEvent{
			PropertyID:    property.ID(),
			PropertyTitle: property.Title(),
			PropertySlug:  property.Slug(),
			OwnerID:       property.CreatorID(),
			ActorID:       userID,
			ActorName:     actorName,
			OccurredAt:    time.Now().UTC(),
		})
	}
	return nil
}

// Unfavorite removes a saved property.
func (s *PropertyService) Unfavorite(ctx context.Context, userID, propertyID uuid.UUID) error {
	return s.favRepo.Delete(ctx, userID, propertyID)
}

// AdminVerify is the moderator path of the verified transition. It is
// the same state change the payment reconciler performs, so the
// notification fires only on an actual false→true flip.
func (s *PropertyService) AdminVerify(ctx context.Context, propertyID uuid.UUID) (*PropertyDTO, error) {
	property, err := s.propertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if property.MarkVerified(time.Now().UTC()) {
		if err := s.propertyRepo.Update(ctx, property); err != nil {
			return nil, err
		}
		s.publish(ctx, events.PropertyVerified, events.PropertyVerifiedEvent{
			PropertyID:    property.ID(),
			PropertyTitle: property.Title(),
			PropertySlug:  property.Slug(),
			OwnerID:       property.CreatorID(),
			OccurredAt:    time.Now().UTC(),
		})
	}

	dto := toPropertyDTO(property)
	return &dto, nil
}

func (s *PropertyService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.producer == nil {
		return
	}
	ce, err := kafka.NewCloudEvent(events.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to build cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicClassifiedsEvents, ce); err != nil {
		s.logger.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
