// internal/handlers/widget/widget_handler.go
package widget

import (
	"errors"
	"net/http"

	"concierge-service/internal/domain/conversation"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	conversationUsecase "concierge-service/internal/service/conversation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WidgetHandler serves the embeddable chat widget. Everything here is
// public: widget visitors are anonymous, identified only by session id.
type WidgetHandler struct {
	service *conversationUsecase.ConversationService
	logger  *zap.Logger
}

func NewWidgetHandler(service *conversationUsecase.ConversationService, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{service: service, logger: logger}
}

// GetConversation resumes a widget chat: the latest conversation for the
// session, or null data when the session never started one.
func (h *WidgetHandler) GetConversation(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, "sessionId is required", nil)
		return
	}

	detail, err := h.service.GetBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("session lookup failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to load conversation", nil)
		return
	}

	response.Success(c, http.StatusOK, "conversation retrieved", detail)
}

// PostMessage handles one end-user turn.
func (h *WidgetHandler) PostMessage(c *gin.Context) {
	var req conversation.WidgetMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	resp, err := h.service.WidgetMessage(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "business not found")
			return
		}
		h.logger.Error("widget message failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to send message", nil)
		return
	}

	response.Success(c, http.StatusOK, "message sent", resp)
}

// Rate records end-user satisfaction for a conversation.
func (h *WidgetHandler) Rate(c *gin.Context) {
	var req conversation.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.service.Rate(c.Request.Context(), &req); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "conversation not found")
			return
		}
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "rating must be between 1 and 5", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to record rating", nil)
		return
	}

	response.Success(c, http.StatusOK, "rating recorded", nil)
}
