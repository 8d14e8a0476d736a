// internal/repository/postgres/knowledge_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"concierge-service/internal/domain/knowledge"
	xerrors "concierge-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type KnowledgeRepository struct {
	db *pgxpool.Pool
}

func NewKnowledgeRepository(db *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

const knowledgeColumns = `
	id, business_id, title, content, tags, is_active, created_at, updated_at, deleted_at
`

func scanEntry(row pgx.Row) (*knowledge.Entry, error) {
	var e knowledge.Entry
	err := row.Scan(
		&e.ID, &e.BusinessID, &e.Title, &e.Content, &e.Tags, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
	}
	return &e, nil
}

// Create inserts an entry.
func (r *KnowledgeRepository) Create(ctx context.Context, e *knowledge.Entry) error {
	query := `
		INSERT INTO knowledge_entries (business_id, title, content, tags, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		e.BusinessID, e.Title, e.Content, e.Tags, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create knowledge entry: %w", err)
	}

	return nil
}

// FindByID retrieves one entry.
func (r *KnowledgeRepository) FindByID(ctx context.Context, id int64) (*knowledge.Entry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_entries WHERE id = $1 AND deleted_at IS NULL`
	return scanEntry(r.db.QueryRow(ctx, query, id))
}

// ListByBusiness returns a business's entries, optionally only active
// ones (the assistant prompt path sets activeOnly).
func (r *KnowledgeRepository) ListByBusiness(ctx context.Context, businessID int64, activeOnly bool) ([]*knowledge.Entry, error) {
	query := `
		SELECT ` + knowledgeColumns + `
		FROM knowledge_entries
		WHERE business_id = $1 AND deleted_at IS NULL AND ($2 = FALSE OR is_active = TRUE)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, businessID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}
	defer rows.Close()

	var out []*knowledge.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update persists entry fields.
func (r *KnowledgeRepository) Update(ctx context.Context, e *knowledge.Entry) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET title = $1, content = $2, tags = $3, is_active = $4, updated_at = NOW()
		 WHERE id = $5 AND deleted_at IS NULL`,
		e.Title, e.Content, e.Tags, e.IsActive, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update knowledge entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete soft-deletes an entry.
func (r *KnowledgeRepository) Delete(ctx context.Context, id, businessID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET deleted_at = NOW() WHERE id = $1 AND business_id = $2 AND deleted_at IS NULL`,
		id, businessID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
