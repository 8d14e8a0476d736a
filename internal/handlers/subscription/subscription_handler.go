// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"concierge-service/internal/domain/subscription"
	"concierge-service/internal/middleware"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	subscriptionUsecase "concierge-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	service *subscriptionUsecase.SubscriptionService
	logger  *zap.Logger
}

func NewSubscriptionHandler(service *subscriptionUsecase.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, logger: logger}
}

// ListPlans serves the public pricing catalogue.
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	response.Success(c, http.StatusOK, "plans retrieved", h.service.Plans())
}

// Get returns the business's subscription with any grace warning.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	view, err := h.service.View(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "subscription not found")
			return
		}
		h.logger.Error("subscription view failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to load subscription", nil)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", view)
}

// ChangeTier moves the business to a different plan.
func (h *SubscriptionHandler) ChangeTier(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	var req subscription.ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	sub, err := h.service.ChangeTier(c.Request.Context(), businessID, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "unknown tier", nil)
			return
		}
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "subscription not found")
			return
		}
		h.logger.Error("tier change failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to change tier", nil)
		return
	}

	response.Success(c, http.StatusOK, "tier changed", sub)
}

// ========== Admin billing events ==========

// PaymentFailed records a failed charge for a business, opening the
// grace window.
func (h *SubscriptionHandler) PaymentFailed(c *gin.Context) {
	businessID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid business id", err)
		return
	}

	sub, err := h.service.RecordPaymentFailure(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "subscription not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to record payment failure", nil)
		return
	}

	response.Success(c, http.StatusOK, "payment failure recorded", sub)
}

// PaymentSucceeded records a successful charge, clearing any grace
// window and restoring the subscribed tier.
func (h *SubscriptionHandler) PaymentSucceeded(c *gin.Context) {
	businessID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid business id", err)
		return
	}

	sub, err := h.service.RecordPaymentSuccess(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "subscription not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to record payment", nil)
		return
	}

	response.Success(c, http.StatusOK, "payment recorded", sub)
}
