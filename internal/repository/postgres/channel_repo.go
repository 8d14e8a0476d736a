// internal/repository/postgres/channel_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"concierge-service/internal/domain/channel"
	xerrors "concierge-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChannelConfigRepository struct {
	db *pgxpool.Pool
}

func NewChannelConfigRepository(db *pgxpool.Pool) *ChannelConfigRepository {
	return &ChannelConfigRepository{db: db}
}

func scanChannelConfig(row pgx.Row) (*channel.Config, error) {
	var c channel.Config
	var settingsJSON []byte

	err := row.Scan(
		&c.ID, &c.BusinessID, &c.Kind, &c.RoutingKey, &c.IsActive,
		&settingsJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan channel config: %w", err)
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &c.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channel settings: %w", err)
		}
	}

	return &c, nil
}

// Create inserts a channel configuration.
func (r *ChannelConfigRepository) Create(ctx context.Context, c *channel.Config) error {
	var settingsJSON []byte
	var err error
	if c.Settings != nil {
		settingsJSON, err = json.Marshal(c.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal channel settings: %w", err)
		}
	}

	query := `
		INSERT INTO channel_configs (business_id, kind, routing_key, is_active, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		c.BusinessID, c.Kind, c.RoutingKey, c.IsActive, settingsJSON,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create channel config: %w", err)
	}

	return nil
}

// FindActiveByRoute resolves the unique active config for a routing key.
// If the key is ambiguous (a configuration defect) the lowest id wins
// deterministically and the caller is told via count so it can log.
func (r *ChannelConfigRepository) FindActiveByRoute(ctx context.Context, kind channel.Kind, routingKey string) (*channel.Config, int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM channel_configs WHERE kind = $1 AND routing_key = $2 AND is_active = TRUE`,
		kind, routingKey,
	).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count channel configs: %w", err)
	}
	if count == 0 {
		return nil, 0, xerrors.ErrNotFound
	}

	query := `
		SELECT id, business_id, kind, routing_key, is_active, settings, created_at, updated_at
		FROM channel_configs
		WHERE kind = $1 AND routing_key = $2 AND is_active = TRUE
		ORDER BY id ASC
		LIMIT 1
	`

	cfg, err := scanChannelConfig(r.db.QueryRow(ctx, query, kind, routingKey))
	if err != nil {
		return nil, 0, err
	}
	return cfg, count, nil
}

// ExistsActiveRoute checks uniqueness before activating a routing key.
func (r *ChannelConfigRepository) ExistsActiveRoute(ctx context.Context, kind channel.Kind, routingKey string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM channel_configs
			WHERE kind = $1 AND routing_key = $2 AND is_active = TRUE AND id <> $3
		)`,
		kind, routingKey, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check routing key: %w", err)
	}
	return exists, nil
}

// ListByBusiness returns a business's channel configurations.
func (r *ChannelConfigRepository) ListByBusiness(ctx context.Context, businessID int64) ([]*channel.Config, error) {
	query := `
		SELECT id, business_id, kind, routing_key, is_active, settings, created_at, updated_at
		FROM channel_configs
		WHERE business_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel configs: %w", err)
	}
	defer rows.Close()

	var out []*channel.Config
	for rows.Next() {
		c, err := scanChannelConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByID retrieves one config.
func (r *ChannelConfigRepository) FindByID(ctx context.Context, id int64) (*channel.Config, error) {
	query := `
		SELECT id, business_id, kind, routing_key, is_active, settings, created_at, updated_at
		FROM channel_configs
		WHERE id = $1
	`
	return scanChannelConfig(r.db.QueryRow(ctx, query, id))
}

// Update persists routing key, active flag and settings.
func (r *ChannelConfigRepository) Update(ctx context.Context, c *channel.Config) error {
	var settingsJSON []byte
	var err error
	if c.Settings != nil {
		settingsJSON, err = json.Marshal(c.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal channel settings: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE channel_configs SET routing_key = $1, is_active = $2, settings = $3, updated_at = NOW() WHERE id = $4`,
		c.RoutingKey, c.IsActive, settingsJSON, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete removes a config.
func (r *ChannelConfigRepository) Delete(ctx context.Context, id, businessID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM channel_configs WHERE id = $1 AND business_id = $2`,
		id, businessID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete channel config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
