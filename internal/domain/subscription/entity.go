// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"time"

	"concierge-service/internal/pkg/tier"
)

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleAnnual  BillingCycle = "annual"
)

// GracePeriod is how long access survives a failed payment.
const GracePeriod = 5 * 24 * time.Hour

// Subscription is the single billing record attached to a business.
type Subscription struct {
	ID         int64  `json:"id" db:"id"`
	Reference  string `json:"reference" db:"reference"`
	BusinessID int64  `json:"business_id" db:"business_id"`

	Tier   tier.Tier `json:"tier" db:"tier"`
	Status Status    `json:"status" db:"status"`

	BillingCycle  BillingCycle  `json:"billing_cycle" db:"billing_cycle"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`

	CurrentPeriodStart time.Time    `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time    `json:"current_period_end" db:"current_period_end"`
	GraceUntil         sql.NullTime `json:"grace_until,omitempty" db:"grace_until"`

	CancelledAt sql.NullTime `json:"cancelled_at,omitempty" db:"cancelled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// InGrace reports whether the subscription is inside a payment-failure
// grace window at the given instant.
func (s *Subscription) InGrace(now time.Time) bool {
	return s.PaymentStatus == PaymentFailed && s.GraceUntil.Valid && now.Before(s.GraceUntil.Time)
}

// GraceExpired reports whether a payment failure's grace window has
// lapsed without a successful payment.
func (s *Subscription) GraceExpired(now time.Time) bool {
	return s.PaymentStatus == PaymentFailed && s.GraceUntil.Valid && !now.Before(s.GraceUntil.Time)
}
