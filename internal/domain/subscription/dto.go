// internal/domain/subscription/dto.go
package subscription

import "time"

// Plan describes one catalogue entry shown on the pricing page.
type Plan struct {
	Tier         string   `json:"tier"`
	Name         string   `json:"name"`
	PriceMonthly float64  `json:"price_monthly"`
	PriceAnnual  float64  `json:"price_annual"`
	Features     []string `json:"features"`
}

// View is the tenant-facing subscription state, with any grace-period
// warning surfaced so the dashboard can render it.
type View struct {
	Subscription  *Subscription `json:"subscription"`
	EffectiveTier string        `json:"effective_tier"`
	GraceWarning  string        `json:"grace_warning,omitempty"`
	GraceEndsAt   *time.Time    `json:"grace_ends_at,omitempty"`
}

type ChangeTierRequest struct {
	Tier         string `json:"tier" binding:"required"`
	BillingCycle string `json:"billing_cycle"`
}
