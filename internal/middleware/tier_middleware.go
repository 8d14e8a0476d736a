// internal/middleware/tier_middleware.go
package middleware

import (
	"net/http"

	"concierge-service/internal/pkg/response"
	"concierge-service/internal/pkg/tier"
	"concierge-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TierMiddleware gates routes on the effective subscription tier. It
// runs after Auth(), reading the business id the auth layer stored.
type TierMiddleware struct {
	subscriptions *subscription.SubscriptionService
	logger        *zap.Logger
}

func NewTierMiddleware(subscriptions *subscription.SubscriptionService, logger *zap.Logger) *TierMiddleware {
	return &TierMiddleware{subscriptions: subscriptions, logger: logger}
}

// Require rejects with 403 (carrying the minimum tier) when the
// business's effective tier does not unlock the area. The same
// tier.Allows predicate runs here and nowhere else, so the dashboard
// and the API can never disagree about access.
func (m *TierMiddleware) Require(area tier.Area) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID, ok := GetBusinessID(c)
		if !ok {
			response.Unauthorized(c, "invalid or missing token")
			return
		}

		effective, err := m.subscriptions.EffectiveTier(c.Request.Context(), businessID)
		if err != nil {
			m.logger.Error("failed to resolve effective tier",
				zap.Error(err),
				zap.Int64("business_id", businessID),
			)
			response.Error(c, http.StatusInternalServerError, "failed to check subscription", nil)
			return
		}

		if !tier.Allows(effective, area) {
			required, _ := tier.RequiredFor(area)
			response.UpgradeRequired(c, string(area), string(required))
			return
		}

		c.Next()
	}
}
