// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"concierge-service/internal/domain/subscription"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, reference, business_id, tier, status, billing_cycle, payment_status,
	current_period_start, current_period_end, grace_until, cancelled_at,
	created_at, updated_at
`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	var rawTier string

	err := row.Scan(
		&s.ID, &s.Reference, &s.BusinessID, &rawTier, &s.Status, &s.BillingCycle, &s.PaymentStatus,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.GraceUntil, &s.CancelledAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	s.Tier = tier.Normalize(rawTier)
	return &s, nil
}

// Create inserts a subscription record.
func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			reference, business_id, tier, status, billing_cycle, payment_status,
			current_period_start, current_period_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		s.Reference, s.BusinessID, string(s.Tier), s.Status, s.BillingCycle, s.PaymentStatus,
		s.CurrentPeriodStart, s.CurrentPeriodEnd,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// FindByID retrieves a subscription by ID.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// FindByBusiness retrieves the (at most one) subscription of a business.
func (r *SubscriptionRepository) FindByBusiness(ctx context.Context, businessID int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE business_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanSubscription(r.db.QueryRow(ctx, query, businessID))
}

// Update persists mutable subscription state.
func (r *SubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			tier = $1, status = $2, billing_cycle = $3, payment_status = $4,
			current_period_start = $5, current_period_end = $6,
			grace_until = $7, cancelled_at = $8, updated_at = NOW()
		WHERE id = $9
	`

	tag, err := r.db.Exec(ctx, query,
		string(s.Tier), s.Status, s.BillingCycle, s.PaymentStatus,
		s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.GraceUntil, s.CancelledAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
