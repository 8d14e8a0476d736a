// internal/service/subscription/subscription_service_test.go
package subscription

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/subscription"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes ----

type fakeBusinessStore struct {
	biz *business.Business
}

func (f *fakeBusinessStore) FindByID(_ context.Context, id int64) (*business.Business, error) {
	if f.biz == nil || f.biz.ID != id {
		return nil, xerrors.ErrNotFound
	}
	return f.biz, nil
}

func (f *fakeBusinessStore) UpdateTier(_ context.Context, id int64, t tier.Tier) error {
	if f.biz == nil || f.biz.ID != id {
		return xerrors.ErrNotFound
	}
	f.biz.Tier = t
	return nil
}

type fakeSubscriptionStore struct {
	sub     *subscription.Subscription
	updates int
}

func (f *fakeSubscriptionStore) FindByBusiness(_ context.Context, businessID int64) (*subscription.Subscription, error) {
	if f.sub == nil || f.sub.BusinessID != businessID {
		return nil, xerrors.ErrNotFound
	}
	return f.sub, nil
}

func (f *fakeSubscriptionStore) Update(_ context.Context, s *subscription.Subscription) error {
	f.sub = s
	f.updates++
	return nil
}

type fakeNotifier struct {
	warnings []time.Time
}

func (f *fakeNotifier) SendGraceWarning(_, _ string, graceEnds time.Time) error {
	f.warnings = append(f.warnings, graceEnds)
	return nil
}

func fixture(bizTier tier.Tier, sub *subscription.Subscription) (*SubscriptionService, *fakeBusinessStore, *fakeSubscriptionStore, *fakeNotifier) {
	businesses := &fakeBusinessStore{biz: &business.Business{
		ID: 7, Email: "host@savanna.example", Name: "Savanna Lodge", Tier: bizTier,
	}}
	subscriptions := &fakeSubscriptionStore{sub: sub}
	notifier := &fakeNotifier{}
	svc := NewSubscriptionService(businesses, subscriptions, notifier, zap.NewNop())
	return svc, businesses, subscriptions, notifier
}

func activeSub(t tier.Tier) *subscription.Subscription {
	now := time.Now()
	return &subscription.Subscription{
		ID: 1, Reference: "sub-ref", BusinessID: 7,
		Tier: t, Status: subscription.StatusActive,
		BillingCycle: subscription.CycleMonthly, PaymentStatus: subscription.PaymentPaid,
		CurrentPeriodStart: now.Add(-10 * 24 * time.Hour),
		CurrentPeriodEnd:   now.Add(20 * 24 * time.Hour),
	}
}

// ---- tests ----

func TestRecordPaymentFailure_OpensGraceWindow(t *testing.T) {
	svc, _, _, notifier := fixture(tier.TierProfessional, activeSub(tier.TierProfessional))

	before := time.Now()
	sub, err := svc.RecordPaymentFailure(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, subscription.PaymentFailed, sub.PaymentStatus)
	require.True(t, sub.GraceUntil.Valid)
	expected := before.Add(subscription.GracePeriod)
	assert.WithinDuration(t, expected, sub.GraceUntil.Time, 5*time.Second)
	require.Len(t, notifier.warnings, 1)
}

func TestRecordPaymentFailure_DoesNotExtendOpenWindow(t *testing.T) {
	sub := activeSub(tier.TierProfessional)
	sub.PaymentStatus = subscription.PaymentFailed
	original := time.Now().Add(2 * 24 * time.Hour)
	sub.GraceUntil = sql.NullTime{Time: original, Valid: true}

	svc, _, subs, notifier := fixture(tier.TierProfessional, sub)

	got, err := svc.RecordPaymentFailure(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, original, got.GraceUntil.Time, "a second failure must not restart the clock")
	assert.Zero(t, subs.updates)
	assert.Empty(t, notifier.warnings)
}

func TestRecordPaymentSuccess_ClearsGraceAndRestoresTier(t *testing.T) {
	sub := activeSub(tier.TierProfessional)
	sub.PaymentStatus = subscription.PaymentFailed
	sub.GraceUntil = sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}

	// The grace window already lapsed and the business was degraded.
	svc, businesses, _, _ := fixture(tier.TierStarter, sub)

	got, err := svc.RecordPaymentSuccess(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, subscription.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, subscription.StatusActive, got.Status)
	assert.False(t, got.GraceUntil.Valid)
	assert.Equal(t, tier.TierProfessional, businesses.biz.Tier, "paid tier restored")
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), got.CurrentPeriodEnd, 5*time.Second)
}

func TestRecordPaymentSuccess_AnnualPeriod(t *testing.T) {
	sub := activeSub(tier.TierPremium)
	sub.BillingCycle = subscription.CycleAnnual
	svc, _, _, _ := fixture(tier.TierPremium, sub)

	got, err := svc.RecordPaymentSuccess(context.Background(), 7)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), got.CurrentPeriodEnd, 5*time.Second)
}

func TestView_InGraceCarriesWarning(t *testing.T) {
	sub := activeSub(tier.TierProfessional)
	sub.PaymentStatus = subscription.PaymentFailed
	ends := time.Now().Add(3 * 24 * time.Hour)
	sub.GraceUntil = sql.NullTime{Time: ends, Valid: true}

	svc, _, _, _ := fixture(tier.TierProfessional, sub)

	view, err := svc.View(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, string(tier.TierProfessional), view.EffectiveTier)
	assert.NotEmpty(t, view.GraceWarning)
	require.NotNil(t, view.GraceEndsAt)
	assert.Equal(t, ends, *view.GraceEndsAt)
}

func TestView_ExpiredGraceDegradesToStarter(t *testing.T) {
	sub := activeSub(tier.TierProfessional)
	sub.PaymentStatus = subscription.PaymentFailed
	sub.GraceUntil = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}

	svc, businesses, _, _ := fixture(tier.TierProfessional, sub)

	view, err := svc.View(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, string(tier.TierStarter), view.EffectiveTier)
	assert.Equal(t, tier.TierStarter, businesses.biz.Tier, "degrade is persisted on first read")
}

func TestView_NoSubscriptionFallsBackToBusinessTier(t *testing.T) {
	svc, _, _, _ := fixture(tier.TierPremium, nil)

	view, err := svc.View(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, string(tier.TierPremium), view.EffectiveTier)
	assert.Nil(t, view.Subscription)
}

func TestEffectiveTier(t *testing.T) {
	sub := activeSub(tier.TierProfessional)
	sub.PaymentStatus = subscription.PaymentFailed
	sub.GraceUntil = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}

	svc, _, _, _ := fixture(tier.TierProfessional, sub)

	got, err := svc.EffectiveTier(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, tier.TierStarter, got)
}

func TestChangeTier(t *testing.T) {
	svc, businesses, _, _ := fixture(tier.TierStarter, activeSub(tier.TierStarter))

	sub, err := svc.ChangeTier(context.Background(), 7, &subscription.ChangeTierRequest{
		Tier: string(tier.TierPremium), BillingCycle: string(subscription.CycleAnnual),
	})
	require.NoError(t, err)

	assert.Equal(t, tier.TierPremium, sub.Tier)
	assert.Equal(t, subscription.CycleAnnual, sub.BillingCycle)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, tier.TierPremium, businesses.biz.Tier, "effective immediately")
}

func TestChangeTier_RejectsUnknownTier(t *testing.T) {
	svc, _, _, _ := fixture(tier.TierStarter, activeSub(tier.TierStarter))

	_, err := svc.ChangeTier(context.Background(), 7, &subscription.ChangeTierRequest{Tier: "platinum"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestPlans_CoversAllTiers(t *testing.T) {
	svc, _, _, _ := fixture(tier.TierStarter, nil)

	plans := svc.Plans()
	require.Len(t, plans, 4)
	assert.Equal(t, string(tier.TierStarter), plans[0].Tier)
	assert.Zero(t, plans[0].PriceMonthly)
	assert.Equal(t, string(tier.TierEnterprise), plans[3].Tier)
}
