// internal/service/knowledge/knowledge_service.go
package knowledge

import (
	"context"

	"concierge-service/internal/domain/knowledge"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/repository/postgres"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type KnowledgeService struct {
	repo   *postgres.KnowledgeRepository
	logger *zap.Logger
}

func NewKnowledgeService(repo *postgres.KnowledgeRepository, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{repo: repo, logger: logger}
}

// Create adds a knowledge-base entry; new entries are active so they
// feed the assistant prompt immediately.
func (s *KnowledgeService) Create(ctx context.Context, businessID int64, req *knowledge.CreateEntryRequest) (*knowledge.Entry, error) {
	e := &knowledge.Entry{
		BusinessID: businessID,
		Title:      req.Title,
		Content:    req.Content,
		Tags:       pq.StringArray(req.Tags),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns the business's entries.
func (s *KnowledgeService) List(ctx context.Context, businessID int64) ([]*knowledge.Entry, error) {
	return s.repo.ListByBusiness(ctx, businessID, false)
}

// ListActive returns only entries that feed the assistant prompt.
func (s *KnowledgeService) ListActive(ctx context.Context, businessID int64) ([]*knowledge.Entry, error) {
	return s.repo.ListByBusiness(ctx, businessID, true)
}

// Update applies the provided fields to an entry the business owns.
func (s *KnowledgeService) Update(ctx context.Context, businessID, entryID int64, req *knowledge.UpdateEntryRequest) (*knowledge.Entry, error) {
	e, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.BusinessID != businessID {
		return nil, xerrors.ErrNotFound
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Content != nil {
		e.Content = *req.Content
	}
	if req.Tags != nil {
		e.Tags = pq.StringArray(req.Tags)
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete soft-deletes an entry.
func (s *KnowledgeService) Delete(ctx context.Context, businessID, entryID int64) error {
	return s.repo.Delete(ctx, entryID, businessID)
}
