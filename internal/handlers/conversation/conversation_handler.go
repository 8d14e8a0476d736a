// internal/handlers/conversation/conversation_handler.go
package conversation

import (
	"errors"
	"net/http"
	"strconv"

	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/middleware"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	conversationUsecase "concierge-service/internal/service/conversation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	service *conversationUsecase.ConversationService
	logger  *zap.Logger
}

func NewConversationHandler(service *conversationUsecase.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{service: service, logger: logger}
}

// List serves the dashboard inbox. With ?conversationId= it returns one
// conversation's full detail instead; either way the result is scoped
// to the authenticated business.
func (h *ConversationHandler) List(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	if raw := c.Query("conversationId"); raw != "" {
		conversationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid conversation id", err)
			return
		}

		detail, err := h.service.GetDetail(c.Request.Context(), businessID, conversationID)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				response.NotFound(c, "conversation not found")
				return
			}
			response.Error(c, http.StatusInternalServerError, "failed to load conversation", nil)
			return
		}

		response.Success(c, http.StatusOK, "conversation retrieved", detail)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summaries, err := h.service.ListInbox(c.Request.Context(), businessID, limit, offset)
	if err != nil {
		h.logger.Error("inbox listing failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to list conversations", nil)
		return
	}

	response.Success(c, http.StatusOK, "conversations retrieved", summaries)
}

// Patch partially updates satisfaction and/or resolved.
func (h *ConversationHandler) Patch(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	var req conversation.PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.service.Patch(c.Request.Context(), businessID, &req); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "conversation not found")
			return
		}
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "satisfaction must be between 1 and 5", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update conversation", nil)
		return
	}

	response.Success(c, http.StatusOK, "conversation updated", nil)
}
