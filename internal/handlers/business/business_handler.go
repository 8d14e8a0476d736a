// internal/handlers/business/business_handler.go
package business

import (
	"errors"
	"net/http"
	"strconv"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/middleware"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	businessUsecase "concierge-service/internal/service/business"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BusinessHandler struct {
	service *businessUsecase.BusinessService
	logger  *zap.Logger
}

func NewBusinessHandler(service *businessUsecase.BusinessService, logger *zap.Logger) *BusinessHandler {
	return &BusinessHandler{service: service, logger: logger}
}

// GetProfile returns the authenticated business's account view.
func (h *BusinessHandler) GetProfile(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	profile, err := h.service.GetProfile(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load profile", nil)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", profile)
}

// UpdateProfile applies partial account/branding changes.
func (h *BusinessHandler) UpdateProfile(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	var req business.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), businessID, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		h.logger.Error("profile update failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to update profile", nil)
		return
	}

	response.Success(c, http.StatusOK, "profile updated", profile)
}

// ========== Admin ==========

// ListBusinesses returns tenant accounts for the admin console.
func (h *BusinessHandler) ListBusinesses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	businesses, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list businesses", nil)
		return
	}

	response.Success(c, http.StatusOK, "businesses retrieved", businesses)
}

// PurgeBusiness hard-deletes a tenant and everything it owns.
func (h *BusinessHandler) PurgeBusiness(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid business id", err)
		return
	}

	if err := h.service.Purge(c.Request.Context(), id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "business not found")
			return
		}
		h.logger.Error("purge failed", zap.Int64("business_id", id), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to purge business", nil)
		return
	}

	response.Success(c, http.StatusOK, "business purged", nil)
}
