// internal/repository/postgres/guest_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"concierge-service/internal/domain/guest"
	xerrors "concierge-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GuestRepository struct {
	db *pgxpool.Pool
}

func NewGuestRepository(db *pgxpool.Pool) *GuestRepository {
	return &GuestRepository{db: db}
}

// TouchByPhone upserts the guest profile for a channel peer: creates it
// on first contact, otherwise bumps visit count and last-seen.
func (r *GuestRepository) TouchByPhone(ctx context.Context, businessID int64, phone, name string) error {
	query := `
		INSERT INTO guests (business_id, phone, name, visit_count, last_seen_at)
		VALUES ($1, $2, NULLIF($3, ''), 1, NOW())
		ON CONFLICT (business_id, phone) DO UPDATE SET
			visit_count = guests.visit_count + 1,
			name = COALESCE(guests.name, EXCLUDED.name),
			last_seen_at = NOW(),
			updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, businessID, phone, name); err != nil {
		return fmt.Errorf("failed to upsert guest: %w", err)
	}
	return nil
}

// TouchBySession does the same for anonymous widget sessions.
func (r *GuestRepository) TouchBySession(ctx context.Context, businessID int64, sessionID string) error {
	query := `
		INSERT INTO guests (business_id, session_id, visit_count, last_seen_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (business_id, session_id) DO UPDATE SET
			visit_count = guests.visit_count + 1,
			last_seen_at = NOW(),
			updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, businessID, sessionID); err != nil {
		return fmt.Errorf("failed to upsert guest session: %w", err)
	}
	return nil
}

// ListByBusiness returns recent guest profiles.
func (r *GuestRepository) ListByBusiness(ctx context.Context, businessID int64, limit, offset int) ([]*guest.Guest, error) {
	query := `
		SELECT id, business_id, phone, session_id, name, notes, visit_count, last_seen_at, created_at, updated_at
		FROM guests
		WHERE business_id = $1
		ORDER BY last_seen_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	var out []*guest.Guest
	for rows.Next() {
		var g guest.Guest
		if err := rows.Scan(
			&g.ID, &g.BusinessID, &g.Phone, &g.SessionID, &g.Name, &g.Notes,
			&g.VisitCount, &g.LastSeenAt, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// FindByID retrieves one guest profile.
func (r *GuestRepository) FindByID(ctx context.Context, id int64) (*guest.Guest, error) {
	query := `
		SELECT id, business_id, phone, session_id, name, notes, visit_count, last_seen_at, created_at, updated_at
		FROM guests
		WHERE id = $1
	`

	var g guest.Guest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.BusinessID, &g.Phone, &g.SessionID, &g.Name, &g.Notes,
		&g.VisitCount, &g.LastSeenAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	return &g, nil
}
