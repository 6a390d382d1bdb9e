package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/notification"
	"github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/internal/domain/promo"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/internal/domain/user"
	"github.com/homelet/service-classifieds/pkg/domain"
)

type fakePromoRepo struct {
	mu    sync.Mutex
	codes map[string]*promo.PromoCode
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{codes: make(map[string]*promo.PromoCode)}
}

func (r *fakePromoRepo) Save(_ context.Context, p *promo.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[p.Code()] = p
	return nil
}

func (r *fakePromoRepo) Update(_ context.Context, p *promo.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[p.Code()] = p
	return nil
}

func (r *fakePromoRepo) FindByCode(_ context.Context, code string) (*promo.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.codes[strings.ToUpper(code)]
	if !ok {
		return nil, promo.ErrNotFound
	}
	return p, nil
}

func (r *fakePromoRepo) FindByCodeForUpdate(ctx context.Context, code string) (*promo.PromoCode, error) {
	return r.FindByCode(ctx, code)
}

func (r *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*promo.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.codes {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, promo.ErrNotFound
}

func (r *fakePromoRepo) ListActive(_ context.Context) ([]*promo.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*promo.PromoCode
	for _, p := range r.codes {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeListingPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*payment.ListingPayment

	// beforeLockedRead runs ahead of FindByReferenceForUpdate, standing
	// in for a competing request that commits while this one waits on
	// the row lock.
	beforeLockedRead func()
}

func newFakeListingPaymentRepo() *fakeListingPaymentRepo {
	return &fakeListingPaymentRepo{payments: make(map[string]*payment.ListingPayment)}
}

func (r *fakeListingPaymentRepo) Save(_ context.Context, p *payment.ListingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.PaymentRef()] = p
	return nil
}

func (r *fakeListingPaymentRepo) Update(ctx context.Context, p *payment.ListingPayment) error {
	return r.Save(ctx, p)
}

func (r *fakeListingPaymentRepo) FindByReference(_ context.Context, reference string) (*payment.ListingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[reference]
	if !ok {
		return nil, domain.NewNotFoundError("ListingPayment", reference)
	}
	return p, nil
}

func (r *fakeListingPaymentRepo) FindByReferenceForUpdate(ctx context.Context, reference string) (*payment.ListingPayment, error) {
	if r.beforeLockedRead != nil {
		r.beforeLockedRead()
	}
	return r.FindByReference(ctx, reference)
}

func (r *fakeListingPaymentRepo) ExistsForUserAndPromo(_ context.Context, userID, promoID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.UserID() == userID && p.PromoID() != nil && *p.PromoID() == promoID {
			return true, nil
		}
	}
	return false, nil
}

type fakeSubscriptionPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*payment.SubscriptionPayment

	beforeLockedRead func()
}

func newFakeSubscriptionPaymentRepo() *fakeSubscriptionPaymentRepo {
	return &fakeSubscriptionPaymentRepo{payments: make(map[string]*payment.SubscriptionPayment)}
}

func (r *fakeSubscriptionPaymentRepo) Save(_ context.Context, p *payment.SubscriptionPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.PaymentRef()] = p
	return nil
}

func (r *fakeSubscriptionPaymentRepo) Update(ctx context.Context, p *payment.SubscriptionPayment) error {
	return r.Save(ctx, p)
}

func (r *fakeSubscriptionPaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref, p := range r.payments {
		if p.ID() == id {
			delete(r.payments, ref)
		}
	}
	return nil
}

func (r *fakeSubscriptionPaymentRepo) FindByReference(_ context.Context, reference string) (*payment.SubscriptionPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[reference]
	if !ok {
		return nil, domain.NewNotFoundError("SubscriptionPayment", reference)
	}
	return p, nil
}

func (r *fakeSubscriptionPaymentRepo) FindByReferenceForUpdate(ctx context.Context, reference string) (*payment.SubscriptionPayment, error) {
	if r.beforeLockedRead != nil {
		r.beforeLockedRead()
	}
	return r.FindByReference(ctx, reference)
}

func (r *fakeSubscriptionPaymentRepo) ExistsSuccessfulForUserAndPromo(_ context.Context, userID, promoID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.UserID() == userID && p.PromoID() != nil && *p.PromoID() == promoID && p.Status() == payment.StatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSubscriptionPaymentRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*payment.SubscriptionPayment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.SubscriptionPayment
	for _, p := range r.payments {
		if p.UserID() == userID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*subscription.Plan
}

func newFakePlanRepo(plans ...*subscription.Plan) *fakePlanRepo {
	r := &fakePlanRepo{plans: make(map[uuid.UUID]*subscription.Plan)}
	for _, p := range plans {
		r.plans[p.ID()] = p
	}
	return r
}

func (r *fakePlanRepo) Save(_ context.Context, p *subscription.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID()] = p
	return nil
}

func (r *fakePlanRepo) FindByID(_ context.Context, id uuid.UUID) (*subscription.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.NewNotFoundError("Plan", id.String())
	}
	return p, nil
}

func (r *fakePlanRepo) FindBySlug(_ context.Context, slug string) (*subscription.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.Slug() == slug {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("Plan", slug)
}

func (r *fakePlanRepo) ListActive(_ context.Context) ([]*subscription.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*subscription.Plan
	for _, p := range r.plans {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*subscription.UserSubscription
}

func newFakeSubscriptionRepo(subs ...*subscription.UserSubscription) *fakeSubscriptionRepo {
	r := &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*subscription.UserSubscription)}
	for _, s := range subs {
		r.subs[s.ID()] = s
	}
	return r
}

func (r *fakeSubscriptionRepo) Save(_ context.Context, s *subscription.UserSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID()] = s
	return nil
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, s *subscription.UserSubscription) error {
	return r.Save(ctx, s)
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	return nil
}

func (r *fakeSubscriptionRepo) FindByID(_ context.Context, id uuid.UUID) (*subscription.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, domain.NewNotFoundError("UserSubscription", id.String())
	}
	return s, nil
}

func (r *fakeSubscriptionRepo) FindActiveByUserID(_ context.Context, userID uuid.UUID) ([]*subscription.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*subscription.UserSubscription
	for _, s := range r.subs {
		if s.UserID() == userID && s.IsActive() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindLapsed(_ context.Context, _ int) ([]*subscription.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []*subscription.UserSubscription
	for _, s := range r.subs {
		if s.IsActive() && s.EndDate().Before(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePropertyRepo struct {
	mu         sync.Mutex
	properties map[uuid.UUID]*listing.Property
}

func newFakePropertyRepo(properties ...*listing.Property) *fakePropertyRepo {
	r := &fakePropertyRepo{properties: make(map[uuid.UUID]*listing.Property)}
	for _, p := range properties {
		r.properties[p.ID()] = p
	}
	return r
}

func (r *fakePropertyRepo) Save(_ context.Context, p *listing.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[p.ID()] = p
	return nil
}

func (r *fakePropertyRepo) Update(ctx context.Context, p *listing.Property) error {
	return r.Save(ctx, p)
}

func (r *fakePropertyRepo) FindByID(_ context.Context, id uuid.UUID) (*listing.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.properties[id]
	if !ok {
		return nil, domain.NewNotFoundError("Property", id.String())
	}
	return p, nil
}

func (r *fakePropertyRepo) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]*listing.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*listing.Property
	for _, p := range r.properties {
		if p.CreatorID() == creatorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePropertyRepo) CountByCreatorSince(_ context.Context, creatorID uuid.UUID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.properties {
		if p.CreatorID() == creatorID && !p.DatePosted().Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakePropertyRepo) FindExpiredVerified(_ context.Context, _ int) ([]*listing.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []*listing.Property
	for _, p := range r.properties {
		if p.IsVerified() && p.ExpiryDate().Before(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeFavoriteRepo struct {
	mu        sync.Mutex
	favorites map[string]*listing.Favorite
}

func newFakeFavoriteRepo() *fakeFavoriteRepo {
	return &fakeFavoriteRepo{favorites: make(map[string]*listing.Favorite)}
}

func favKey(userID, propertyID uuid.UUID) string {
	return userID.String() + "/" + propertyID.String()
}

func (r *fakeFavoriteRepo) Save(_ context.Context, f *listing.Favorite) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favKey(f.UserID, f.PropertyID)
	if _, ok := r.favorites[key]; ok {
		return false, nil
	}
	r.favorites[key] = f
	return true, nil
}

func (r *fakeFavoriteRepo) Delete(_ context.Context, userID, propertyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.favorites, favKey(userID, propertyID))
	return nil
}

func (r *fakeFavoriteRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*listing.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*listing.Favorite
	for _, f := range r.favorites {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*user.User
	tokens map[uuid.UUID][]*user.DeviceToken
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:  make(map[uuid.UUID]*user.User),
		tokens: make(map[uuid.UUID][]*user.DeviceToken),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", id.String())
	}
	return u, nil
}

func (r *fakeUserRepo) ListDeviceTokens(_ context.Context, userID uuid.UUID) ([]*user.DeviceToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[userID], nil
}

func (r *fakeUserRepo) SaveDeviceToken(_ context.Context, t *user.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.UserID] = append(r.tokens[t.UserID], t)
	return nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []*notification.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Save(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, n := range r.items {
		if n.UserID == userID && want[n.ID] {
			n.IsRead = true
		}
	}
	return nil
}
