// internal/service/business/business_service.go
package business

import (
	"context"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type BusinessService struct {
	repo   *postgres.BusinessRepository
	logger *zap.Logger
}

func NewBusinessService(repo *postgres.BusinessRepository, logger *zap.Logger) *BusinessService {
	return &BusinessService{repo: repo, logger: logger}
}

// GetProfile returns the tenant-facing account view.
func (s *BusinessService) GetProfile(ctx context.Context, businessID int64) (*business.Profile, error) {
	biz, err := s.repo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	return biz.ToProfile(), nil
}

// UpdateProfile applies the provided fields and returns the fresh view.
func (s *BusinessService) UpdateProfile(ctx context.Context, businessID int64, req *business.UpdateProfileRequest) (*business.Profile, error) {
	if err := s.repo.UpdateProfile(ctx, businessID, req); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, businessID)
}

// List returns accounts for the admin console.
func (s *BusinessService) List(ctx context.Context, limit, offset int) ([]*business.Business, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Purge hard-deletes a business and all data it owns.
func (s *BusinessService) Purge(ctx context.Context, businessID int64) error {
	if err := s.repo.Purge(ctx, businessID); err != nil {
		return err
	}
	s.logger.Warn("business purged", zap.Int64("business_id", businessID))
	return nil
}
