// internal/handlers/channel/channel_handler.go
package channel

import (
	"errors"
	"net/http"
	"strconv"

	"concierge-service/internal/domain/channel"
	"concierge-service/internal/middleware"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	channelUsecase "concierge-service/internal/service/channel"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChannelHandler struct {
	service *channelUsecase.ChannelService
	logger  *zap.Logger
}

func NewChannelHandler(service *channelUsecase.ChannelService, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{service: service, logger: logger}
}

// Create registers an SMS or WhatsApp routing key for the business.
func (h *ChannelHandler) Create(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	var req channel.CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	cfg, err := h.service.Create(c.Request.Context(), businessID, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			response.Error(c, http.StatusConflict, "routing key already in use", nil)
			return
		}
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "unsupported channel kind", nil)
			return
		}
		h.logger.Error("channel config creation failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to create channel", nil)
		return
	}

	response.Success(c, http.StatusCreated, "channel created", cfg)
}

// List returns the business's channel configurations.
func (h *ChannelHandler) List(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	configs, err := h.service.List(c.Request.Context(), businessID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list channels", nil)
		return
	}

	response.Success(c, http.StatusOK, "channels retrieved", configs)
}

// Update changes routing key, active flag or settings.
func (h *ChannelHandler) Update(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid channel id", err)
		return
	}

	var req channel.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	cfg, err := h.service.Update(c.Request.Context(), businessID, id, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "channel not found")
			return
		}
		if errors.Is(err, xerrors.ErrConflict) {
			response.Error(c, http.StatusConflict, "routing key already in use", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update channel", nil)
		return
	}

	response.Success(c, http.StatusOK, "channel updated", cfg)
}

// Delete removes a channel configuration.
func (h *ChannelHandler) Delete(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid channel id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), businessID, id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "channel not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to delete channel", nil)
		return
	}

	response.Success(c, http.StatusOK, "channel deleted", nil)
}
