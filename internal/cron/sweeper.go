package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
)

const sweepBatchSize = 500

// Sweeper runs the daily maintenance pass: subscriptions past their end
// date are deactivated and verified listings past their expiry date are
// hidden. Both are cleanups of state the request path only lazily
// re-checks, so a missed run degrades freshness, not correctness.
type Sweeper struct {
	subRepo      subscription.Repository
	propertyRepo listing.Repository
	scheduler    *cron.Cron
	logger       *zap.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(subRepo subscription.Repository, propertyRepo listing.Repository, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		subRepo:      subRepo,
		propertyRepo: propertyRepo,
		scheduler:    cron.New(),
		logger:       logger,
	}
}

// Start schedules the daily sweep and begins the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.scheduler.AddFunc("@daily", s.Sweep); err != nil {
		return err
	}
	s.scheduler.Start()
	s.logger.Info("daily sweep scheduled")
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.scheduler.Stop()
	<-ctx.Done()
}

// Sweep runs one maintenance pass immediately.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.deactivateLapsedSubscriptions(ctx)
	s.expireListings(ctx)
}

func (s *Sweeper) deactivateLapsedSubscriptions(ctx context.Context) {
	now := time.Now().UTC()
	lapsed, err := s.subRepo.FindLapsed(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to load lapsed subscriptions", zap.Error(err))
		return
	}

	var done int
	for _, sub := range lapsed {
		sub.Deactivate(now)
		if err := s.subRepo.Update(ctx, sub); err != nil {
			s.logger.Error("failed to deactivate subscription",
				zap.String("subscription_id", sub.ID().String()),
				zap.Error(err),
			)
			continue
		}
		done++
	}

	if done > 0 {
		s.logger.Info("deactivated lapsed subscriptions", zap.Int("count", done))
	}
}

func (s *Sweeper) expireListings(ctx context.Context) {
	now := time.Now().UTC()
	expired, err := s.propertyRepo.FindExpiredVerified(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to load expired listings", zap.Error(err))
		return
	}

	var done int
	for _, property := range expired {
		property.Expire(now)
		if err := s.propertyRepo.Update(ctx, property); err != nil {
			s.logger.Error("failed to expire listing",
				zap.String("property_id", property.ID().String()),
				zap.Error(err),
			)
			continue
		}
		done++
	}

	if done > 0 {
		s.logger.Info("expired listings", zap.Int("count", done))
	}
}
