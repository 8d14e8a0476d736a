// internal/handlers/guest/guest_handler.go
package guest

import (
	"net/http"
	"strconv"

	"concierge-service/internal/middleware"
	"concierge-service/internal/pkg/response"
	"concierge-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GuestHandler exposes accumulated guest profiles to the dashboard.
type GuestHandler struct {
	repo   *postgres.GuestRepository
	logger *zap.Logger
}

func NewGuestHandler(repo *postgres.GuestRepository, logger *zap.Logger) *GuestHandler {
	return &GuestHandler{repo: repo, logger: logger}
}

// List returns recent guests for the authenticated business.
func (h *GuestHandler) List(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	guests, err := h.repo.ListByBusiness(c.Request.Context(), businessID, limit, offset)
	if err != nil {
		h.logger.Error("guest listing failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to list guests", nil)
		return
	}

	response.Success(c, http.StatusOK, "guests retrieved", guests)
}
