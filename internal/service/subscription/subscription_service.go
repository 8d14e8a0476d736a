// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/subscription"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"

	"go.uber.org/zap"
)

// businessStore and subscriptionStore are the slices of the repositories
// this service touches; tests swap in in-memory fakes.
type businessStore interface {
	FindByID(ctx context.Context, id int64) (*business.Business, error)
	UpdateTier(ctx context.Context, id int64, t tier.Tier) error
}

type subscriptionStore interface {
	FindByBusiness(ctx context.Context, businessID int64) (*subscription.Subscription, error)
	Update(ctx context.Context, s *subscription.Subscription) error
}

type graceNotifier interface {
	SendGraceWarning(to, businessName string, graceEnds time.Time) error
}

type SubscriptionService struct {
	businesses    businessStore
	subscriptions subscriptionStore
	notifier      graceNotifier
	logger        *zap.Logger
}

func NewSubscriptionService(businesses businessStore, subscriptions subscriptionStore, notifier graceNotifier, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		businesses:    businesses,
		subscriptions: subscriptions,
		notifier:      notifier,
		logger:        logger,
	}
}

// Plans is the public pricing catalogue.
func (s *SubscriptionService) Plans() []*subscription.Plan {
	return []*subscription.Plan{
		{
			Tier: string(tier.TierStarter), Name: "Starter",
			PriceMonthly: 0, PriceAnnual: 0,
			Features: []string{"Chat widget", "Knowledge base", "Conversation inbox"},
		},
		{
			Tier: string(tier.TierProfessional), Name: "Professional",
			PriceMonthly: 49, PriceAnnual: 490,
			Features: []string{"Everything in Starter", "SMS & WhatsApp channels", "Guest intelligence", "Revenue optimization"},
		},
		{
			Tier: string(tier.TierPremium), Name: "Premium",
			PriceMonthly: 149, PriceAnnual: 1490,
			Features: []string{"Everything in Professional", "Advanced analytics", "API access"},
		},
		{
			Tier: string(tier.TierEnterprise), Name: "Enterprise",
			PriceMonthly: 399, PriceAnnual: 3990,
			Features: []string{"Everything in Premium", "White label", "Priority support"},
		},
	}
}

// View assembles the tenant-facing subscription state, applying grace
// expiry lazily: the first read after the window lapses degrades the
// business to starter.
func (s *SubscriptionService) View(ctx context.Context, businessID int64) (*subscription.View, error) {
	biz, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.FindByBusiness(ctx, businessID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return &subscription.View{EffectiveTier: string(biz.Tier)}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	view := &subscription.View{
		Subscription:  sub,
		EffectiveTier: string(biz.Tier),
	}

	switch {
	case sub.InGrace(now):
		view.GraceWarning = "Your last payment failed. Update your payment method to keep your current plan."
		ends := sub.GraceUntil.Time
		view.GraceEndsAt = &ends
	case sub.GraceExpired(now):
		if biz.Tier != tier.TierStarter {
			if err := s.businesses.UpdateTier(ctx, businessID, tier.TierStarter); err != nil {
				return nil, err
			}
			s.logger.Info("grace period expired, degraded to starter",
				zap.Int64("business_id", businessID),
			)
		}
		view.EffectiveTier = string(tier.TierStarter)
	}

	return view, nil
}

// EffectiveTier is the tier access checks should use right now: the
// business tier, or starter once a failed payment's grace window lapsed.
func (s *SubscriptionService) EffectiveTier(ctx context.Context, businessID int64) (tier.Tier, error) {
	biz, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		return tier.TierStarter, err
	}

	sub, err := s.subscriptions.FindByBusiness(ctx, businessID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return biz.Tier, nil
	}
	if err != nil {
		return tier.TierStarter, err
	}

	if sub.GraceExpired(time.Now()) {
		return tier.TierStarter, nil
	}
	return biz.Tier, nil
}

// ChangeTier moves a business to a different plan, effective immediately.
func (s *SubscriptionService) ChangeTier(ctx context.Context, businessID int64, req *subscription.ChangeTierRequest) (*subscription.Subscription, error) {
	newTier := tier.Tier(req.Tier)
	if !tier.Valid(newTier) {
		return nil, fmt.Errorf("%w: unknown tier %q", xerrors.ErrInvalidInput, req.Tier)
	}

	sub, err := s.subscriptions.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	sub.Tier = newTier
	if req.BillingCycle == string(subscription.CycleAnnual) {
		sub.BillingCycle = subscription.CycleAnnual
	} else if req.BillingCycle == string(subscription.CycleMonthly) {
		sub.BillingCycle = subscription.CycleMonthly
	}
	sub.Status = subscription.StatusActive

	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.businesses.UpdateTier(ctx, businessID, newTier); err != nil {
		return nil, err
	}

	s.logger.Info("tier changed",
		zap.Int64("business_id", businessID),
		zap.String("tier", string(newTier)),
	)
	return sub, nil
}

// RecordPaymentFailure opens the grace window. This is the only
// transition that starts grace; repeated failures inside an open window
// do not extend it.
func (s *SubscriptionService) RecordPaymentFailure(ctx context.Context, businessID int64) (*subscription.Subscription, error) {
	sub, err := s.subscriptions.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if sub.InGrace(now) {
		return sub, nil
	}

	sub.PaymentStatus = subscription.PaymentFailed
	sub.GraceUntil = sql.NullTime{Time: now.Add(subscription.GracePeriod), Valid: true}
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Warn("payment failed, grace window opened",
		zap.Int64("business_id", businessID),
		zap.Time("grace_until", sub.GraceUntil.Time),
	)

	if s.notifier != nil {
		biz, err := s.businesses.FindByID(ctx, businessID)
		if err == nil {
			if err := s.notifier.SendGraceWarning(biz.Email, biz.Name, sub.GraceUntil.Time); err != nil {
				s.logger.Warn("grace warning email failed", zap.Error(err))
			}
		}
	}

	return sub, nil
}

// RecordPaymentSuccess clears any grace window, restores the subscribed
// tier and starts a fresh billing period.
func (s *SubscriptionService) RecordPaymentSuccess(ctx context.Context, businessID int64) (*subscription.Subscription, error) {
	sub, err := s.subscriptions.FindByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	period := 30 * 24 * time.Hour
	if sub.BillingCycle == subscription.CycleAnnual {
		period = 365 * 24 * time.Hour
	}

	sub.PaymentStatus = subscription.PaymentPaid
	sub.Status = subscription.StatusActive
	sub.GraceUntil = sql.NullTime{}
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = now.Add(period)

	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, err
	}

	// A payment after grace expiry restores the paid tier.
	if err := s.businesses.UpdateTier(ctx, businessID, sub.Tier); err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.Int64("business_id", businessID),
		zap.String("tier", string(sub.Tier)),
	)
	return sub, nil
}
