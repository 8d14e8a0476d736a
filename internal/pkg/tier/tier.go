// internal/pkg/tier/tier.go
package tier

import "strings"

// Tier is a subscription feature level.
type Tier string

const (
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierPremium      Tier = "premium"
	TierEnterprise   Tier = "enterprise"
)

// rank gives the total order starter < professional < premium < enterprise.
// Unknown tiers rank below starter so they never unlock anything.
var rank = map[Tier]int{
	TierStarter:      1,
	TierProfessional: 2,
	TierPremium:      3,
	TierEnterprise:   4,
}

// Area is a gated product area.
type Area string

const (
	AreaWidget              Area = "widget"
	AreaKnowledgeBase       Area = "knowledge_base"
	AreaMultiChannel        Area = "multi_channel"
	AreaGuestIntelligence   Area = "guest_intelligence"
	AreaRevenueOptimization Area = "revenue_optimization"
	AreaAdvancedAnalytics   Area = "advanced_analytics"
	AreaAPIAccess           Area = "api_access"
	AreaWhiteLabel          Area = "white_label"
)

// Areas maps each gated area to the minimum tier that unlocks it.
// This table is the single source of truth; handlers and middleware
// must never compare tier strings directly.
var Areas = map[Area]Tier{
	AreaWidget:              TierStarter,
	AreaKnowledgeBase:       TierStarter,
	AreaMultiChannel:        TierProfessional,
	AreaGuestIntelligence:   TierProfessional,
	AreaRevenueOptimization: TierProfessional,
	AreaAdvancedAnalytics:   TierPremium,
	AreaAPIAccess:           TierPremium,
	AreaWhiteLabel:          TierEnterprise,
}

// Valid reports whether t is one of the four recognised tiers.
func Valid(t Tier) bool {
	_, ok := rank[t]
	return ok
}

// Normalize lowercases and validates a stored tier value. Unrecognised
// values fall back to starter: bad data must never widen access.
func Normalize(raw string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if Valid(t) {
		return t
	}
	return TierStarter
}

// AtLeast reports whether t satisfies the minimum tier min.
// Unknown tiers on either side fail closed.
func AtLeast(t, min Tier) bool {
	tr, ok := rank[t]
	if !ok {
		return false
	}
	mr, ok := rank[min]
	if !ok {
		return false
	}
	return tr >= mr
}

// Allows reports whether a business at tier t may use area a.
// Pure predicate: the same answer on the API side and the widget side.
// Areas missing from the table fail closed.
func Allows(t Tier, a Area) bool {
	min, ok := Areas[a]
	if !ok {
		return false
	}
	return AtLeast(t, min)
}

// RequiredFor returns the minimum tier for an area, used to surface an
// upgrade path on 403 responses. ok is false for unknown areas.
func RequiredFor(a Area) (Tier, bool) {
	min, ok := Areas[a]
	return min, ok
}
