// internal/repository/postgres/business_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"concierge-service/internal/domain/business"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BusinessRepository struct {
	db *pgxpool.Pool
}

func NewBusinessRepository(db *pgxpool.Pool) *BusinessRepository {
	return &BusinessRepository{db: db}
}

const businessColumns = `
	id, email, password_hash, name, business_type, tier, status,
	brand_color, logo_url, welcome_message, business_info,
	created_at, updated_at, deleted_at
`

func scanBusiness(row pgx.Row) (*business.Business, error) {
	var b business.Business
	var rawTier string

	err := row.Scan(
		&b.ID, &b.Email, &b.PasswordHash, &b.Name, &b.BusinessType, &rawTier, &b.Status,
		&b.BrandColor, &b.LogoURL, &b.WelcomeMessage, &b.BusinessInfo,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan business: %w", err)
	}

	// The storage layer does not enforce the tier enumeration; normalize
	// on every read so bad data never widens access.
	b.Tier = tier.Normalize(rawTier)
	return &b, nil
}

// Create inserts a business account.
func (r *BusinessRepository) Create(ctx context.Context, b *business.Business) error {
	query := `
		INSERT INTO businesses (
			email, password_hash, name, business_type, tier, status,
			brand_color, logo_url, welcome_message, business_info
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		b.Email, b.PasswordHash, b.Name, b.BusinessType, string(b.Tier), b.Status,
		b.BrandColor, b.LogoURL, b.WelcomeMessage, b.BusinessInfo,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}

	return nil
}

// FindByID retrieves a business by ID.
func (r *BusinessRepository) FindByID(ctx context.Context, id int64) (*business.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1 AND deleted_at IS NULL`
	return scanBusiness(r.db.QueryRow(ctx, query, id))
}

// FindByEmail retrieves a business by email.
func (r *BusinessRepository) FindByEmail(ctx context.Context, email string) (*business.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE email = $1 AND deleted_at IS NULL`
	return scanBusiness(r.db.QueryRow(ctx, query, email))
}

// ExistsByEmail checks whether an account already uses this email.
func (r *BusinessRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM businesses WHERE email = $1 AND deleted_at IS NULL)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdateProfile applies the non-nil fields of the request.
func (r *BusinessRepository) UpdateProfile(ctx context.Context, id int64, req *business.UpdateProfileRequest) error {
	query := `
		UPDATE businesses SET
			name            = COALESCE($1, name),
			business_type   = COALESCE($2, business_type),
			brand_color     = COALESCE($3, brand_color),
			logo_url        = COALESCE($4, logo_url),
			welcome_message = COALESCE($5, welcome_message),
			business_info   = COALESCE($6, business_info),
			updated_at      = NOW()
		WHERE id = $7 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query,
		req.Name, req.BusinessType, req.BrandColor, req.LogoURL,
		req.WelcomeMessage, req.BusinessInfo, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update business profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateTier sets the stored tier after a subscription change.
func (r *BusinessRepository) UpdateTier(ctx context.Context, id int64, t tier.Tier) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE businesses SET tier = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		string(t), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update business tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// List returns businesses for the admin console, newest first.
func (r *BusinessRepository) List(ctx context.Context, limit, offset int) ([]*business.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var out []*business.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Purge hard-deletes a business and everything it owns in one
// transaction. Only reachable through the admin console.
func (r *BusinessRepository) Purge(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE business_id = $1)`,
		`DELETE FROM conversations WHERE business_id = $1`,
		`DELETE FROM knowledge_entries WHERE business_id = $1`,
		`DELETE FROM guests WHERE business_id = $1`,
		`DELETE FROM channel_configs WHERE business_id = $1`,
		`DELETE FROM subscriptions WHERE business_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to purge business data: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return tx.Commit(ctx)
}
