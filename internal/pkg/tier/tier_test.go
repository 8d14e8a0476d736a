package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var ordered = []Tier{TierStarter, TierProfessional, TierPremium, TierEnterprise}

func TestAtLeast_Monotonic(t *testing.T) {
	// Every tier satisfies every lower-or-equal minimum.
	for i, min := range ordered {
		for j, have := range ordered {
			want := j >= i
			assert.Equal(t, want, AtLeast(have, min), "have=%s min=%s", have, min)
		}
	}
}

func TestAllows_Monotonic(t *testing.T) {
	// If a tier unlocks an area, every higher tier unlocks it too.
	for area := range Areas {
		unlocked := false
		for _, tr := range ordered {
			if Allows(tr, area) {
				unlocked = true
			}
			if unlocked {
				assert.True(t, Allows(tr, area), "tier %s lost access to %s", tr, area)
			}
		}
		assert.True(t, unlocked, "area %s unreachable at any tier", area)
	}
}

func TestAllows_StarterVsProfessional(t *testing.T) {
	gated := []Area{AreaMultiChannel, AreaGuestIntelligence, AreaRevenueOptimization}

	for _, area := range gated {
		assert.False(t, Allows(TierStarter, area), "starter must not reach %s", area)
		assert.True(t, Allows(TierProfessional, area), "professional must reach %s", area)
	}
}

func TestAllows_FailsClosed(t *testing.T) {
	assert.False(t, Allows(Tier(""), AreaWidget))
	assert.False(t, Allows(Tier("gold"), AreaWidget))
	assert.False(t, Allows(TierEnterprise, Area("nonexistent_area")))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, TierProfessional, Normalize("Professional"))
	assert.Equal(t, TierEnterprise, Normalize(" enterprise "))
	assert.Equal(t, TierStarter, Normalize(""))
	assert.Equal(t, TierStarter, Normalize("unlimited"))
	assert.Equal(t, TierStarter, Normalize("gold"))
}

func TestValid(t *testing.T) {
	for _, tr := range ordered {
		assert.True(t, Valid(tr))
	}
	assert.False(t, Valid(Tier("free")))
}

func TestRequiredFor(t *testing.T) {
	min, ok := RequiredFor(AreaWhiteLabel)
	assert.True(t, ok)
	assert.Equal(t, TierEnterprise, min)

	_, ok = RequiredFor(Area("bogus"))
	assert.False(t, ok)
}
