// internal/service/channel/channel_service.go
package channel

import (
	"context"
	"fmt"

	"concierge-service/internal/domain/channel"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type ChannelService struct {
	repo   *postgres.ChannelConfigRepository
	logger *zap.Logger
}

func NewChannelService(repo *postgres.ChannelConfigRepository, logger *zap.Logger) *ChannelService {
	return &ChannelService{repo: repo, logger: logger}
}

// Create registers a routing key for a business. The key must be unique
// among active configs of the same kind; new configs start active.
func (s *ChannelService) Create(ctx context.Context, businessID int64, req *channel.CreateConfigRequest) (*channel.Config, error) {
	kind := channel.Kind(req.Kind)
	if !channel.ValidKind(kind) {
		return nil, fmt.Errorf("%w: unknown channel kind %q", xerrors.ErrInvalidInput, req.Kind)
	}

	taken, err := s.repo.ExistsActiveRoute(ctx, kind, req.RoutingKey, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: routing key already in use", xerrors.ErrConflict)
	}

	cfg := &channel.Config{
		BusinessID: businessID,
		Kind:       kind,
		RoutingKey: req.RoutingKey,
		IsActive:   true,
		Settings:   req.Settings,
	}
	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("channel config created",
		zap.Int64("business_id", businessID),
		zap.String("kind", string(kind)),
		zap.String("routing_key", req.RoutingKey),
	)
	return cfg, nil
}

// List returns the business's channel configurations.
func (s *ChannelService) List(ctx context.Context, businessID int64) ([]*channel.Config, error) {
	return s.repo.ListByBusiness(ctx, businessID)
}

// Update applies the provided fields, re-checking routing-key uniqueness
// whenever the config would end up active under a key.
func (s *ChannelService) Update(ctx context.Context, businessID, configID int64, req *channel.UpdateConfigRequest) (*channel.Config, error) {
	cfg, err := s.repo.FindByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if cfg.BusinessID != businessID {
		return nil, xerrors.ErrNotFound
	}

	if req.RoutingKey != nil {
		cfg.RoutingKey = *req.RoutingKey
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		cfg.Settings = req.Settings
	}

	if cfg.IsActive {
		taken, err := s.repo.ExistsActiveRoute(ctx, cfg.Kind, cfg.RoutingKey, cfg.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: routing key already in use", xerrors.ErrConflict)
		}
	}

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delete removes a config owned by the business.
func (s *ChannelService) Delete(ctx context.Context, businessID, configID int64) error {
	return s.repo.Delete(ctx, configID, businessID)
}
