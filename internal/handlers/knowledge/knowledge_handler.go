// internal/handlers/knowledge/knowledge_handler.go
package knowledge

import (
	"errors"
	"net/http"
	"strconv"

	"concierge-service/internal/domain/knowledge"
	"concierge-service/internal/middleware"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	knowledgeUsecase "concierge-service/internal/service/knowledge"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type KnowledgeHandler struct {
	service *knowledgeUsecase.KnowledgeService
	logger  *zap.Logger
}

func NewKnowledgeHandler(service *knowledgeUsecase.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{service: service, logger: logger}
}

// Create adds an entry.
func (h *KnowledgeHandler) Create(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	var req knowledge.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	entry, err := h.service.Create(c.Request.Context(), businessID, &req)
	if err != nil {
		h.logger.Error("knowledge entry creation failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to create entry", nil)
		return
	}

	response.Success(c, http.StatusCreated, "entry created", entry)
}

// List returns all of the business's entries.
func (h *KnowledgeHandler) List(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	entries, err := h.service.List(c.Request.Context(), businessID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list entries", nil)
		return
	}

	response.Success(c, http.StatusOK, "entries retrieved", entries)
}

// Update applies partial changes to an entry.
func (h *KnowledgeHandler) Update(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid entry id", err)
		return
	}

	var req knowledge.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	entry, err := h.service.Update(c.Request.Context(), businessID, id, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "entry not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update entry", nil)
		return
	}

	response.Success(c, http.StatusOK, "entry updated", entry)
}

// Delete soft-deletes an entry.
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid entry id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), businessID, id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "entry not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to delete entry", nil)
		return
	}

	response.Success(c, http.StatusOK, "entry deleted", nil)
}
