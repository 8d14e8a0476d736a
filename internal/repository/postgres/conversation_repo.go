// internal/repository/postgres/conversation_repo.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"concierge-service/internal/domain/channel"
	"concierge-service/internal/domain/conversation"
	xerrors "concierge-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `
	id, business_id, session_id, channel, peer, satisfaction, resolved, created_at, updated_at
`

func scanConversation(row pgx.Row) (*conversation.Conversation, error) {
	var c conversation.Conversation
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.SessionID, &c.Channel, &c.Peer,
		&c.Satisfaction, &c.Resolved, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return &c, nil
}

// Create inserts a conversation.
func (r *ConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	query := `
		INSERT INTO conversations (business_id, session_id, channel, peer)
		VALUES ($1, $2, $3, $4)
		RETURNING id, resolved, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		c.BusinessID, c.SessionID, c.Channel, c.Peer,
	).Scan(&c.ID, &c.Resolved, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// FindByID retrieves a conversation.
func (r *ConversationRepository) FindByID(ctx context.Context, id int64) (*conversation.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(r.db.QueryRow(ctx, query, id))
}

// FindLatestBySession returns the most recent conversation created under
// an anonymous widget session, or ErrNotFound.
func (r *ConversationRepository) FindLatestBySession(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanConversation(r.db.QueryRow(ctx, query, sessionID))
}

// FindOrCreateChannelThread returns the open thread for a channel peer,
// creating it if this is the peer's first message. Concurrent webhook
// deliveries race here; the partial unique index on
// (business_id, channel, peer) makes the insert side idempotent.
func (r *ConversationRepository) FindOrCreateChannelThread(ctx context.Context, businessID int64, kind channel.Kind, peer string) (*conversation.Conversation, error) {
	selectQuery := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE business_id = $1 AND channel = $2 AND peer = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	c, err := scanConversation(r.db.QueryRow(ctx, selectQuery, businessID, string(kind), peer))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	insertQuery := `
		INSERT INTO conversations (business_id, channel, peer)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id, channel, peer) DO NOTHING
		RETURNING ` + conversationColumns

	c, err = scanConversation(r.db.QueryRow(ctx, insertQuery, businessID, string(kind), peer))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	// Lost the insert race; the winner's row exists now.
	return scanConversation(r.db.QueryRow(ctx, selectQuery, businessID, string(kind), peer))
}

// AppendMessage inserts a message and bumps the conversation's
// updated_at in one transaction so inbox ordering stays consistent.
func (r *ConversationRepository) AppendMessage(ctx context.Context, m *conversation.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin message transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (conversation_id, role, content, provider_ref, delivery_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, query,
		m.ConversationID, m.Role, m.Content, m.ProviderRef, m.DeliveryStatus,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`,
		m.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return tx.Commit(ctx)
}

// MessageExistsByProviderRef is the store-level idempotency check behind
// the Redis fast path.
func (r *ConversationRepository) MessageExistsByProviderRef(ctx context.Context, providerRef string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE provider_ref = $1)`,
		providerRef,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check provider ref: %w", err)
	}
	return exists, nil
}

// ListMessages returns a conversation's messages in ascending creation
// order.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]*conversation.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, provider_ref, delivery_status, delivered_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*conversation.Message
	for rows.Next() {
		var m conversation.Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&m.ProviderRef, &m.DeliveryStatus, &m.DeliveredAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListSummaries returns a business's most recently updated conversations
// with last message and message count, for the dashboard inbox.
func (r *ConversationRepository) ListSummaries(ctx context.Context, businessID int64, limit, offset int) ([]*conversation.Summary, error) {
	query := `
		SELECT c.id, c.business_id, c.session_id, c.channel, c.peer,
		       c.satisfaction, c.resolved, c.created_at, c.updated_at,
		       m.id, m.role, m.content, m.created_at,
		       (SELECT COUNT(*) FROM messages WHERE conversation_id = c.id)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, role, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.business_id = $1
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*conversation.Summary
	for rows.Next() {
		var s conversation.Summary
		var lastID sql.NullInt64
		var lastRole, lastContent sql.NullString
		var lastCreated sql.NullTime

		if err := rows.Scan(
			&s.Conversation.ID, &s.Conversation.BusinessID, &s.Conversation.SessionID,
			&s.Conversation.Channel, &s.Conversation.Peer,
			&s.Conversation.Satisfaction, &s.Conversation.Resolved,
			&s.Conversation.CreatedAt, &s.Conversation.UpdatedAt,
			&lastID, &lastRole, &lastContent, &lastCreated,
			&s.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation summary: %w", err)
		}

		if lastID.Valid {
			s.LastMessage = &conversation.Message{
				ID:             lastID.Int64,
				ConversationID: s.Conversation.ID,
				Role:           conversation.Role(lastRole.String),
				Content:        lastContent.String,
				CreatedAt:      lastCreated.Time,
			}
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Rate sets satisfaction and resolved, appending any feedback as a
// system message. Both writes commit or neither does.
func (r *ConversationRepository) Rate(ctx context.Context, conversationID int64, rating int, feedback string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rating transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET satisfaction = $1, resolved = TRUE, updated_at = NOW() WHERE id = $2`,
		rating, conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to rate conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	if feedback != "" {
		_, err := tx.Exec(ctx,
			`INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)`,
			conversationID, conversation.RoleSystem, feedback,
		)
		if err != nil {
			return fmt.Errorf("failed to append feedback message: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Patch updates only the provided fields.
func (r *ConversationRepository) Patch(ctx context.Context, req *conversation.PatchRequest) error {
	query := `
		UPDATE conversations SET
			satisfaction = COALESCE($1, satisfaction),
			resolved     = COALESCE($2, resolved),
			updated_at   = NOW()
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, req.Satisfaction, req.Resolved, req.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to patch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateDeliveryByProviderRef applies a delivery-status callback to every
// message carrying the correlation id. Returns how many rows changed; a
// zero count is not an error.
func (r *ConversationRepository) UpdateDeliveryByProviderRef(ctx context.Context, providerRef, state string, delivered bool) (int64, error) {
	query := `
		UPDATE messages SET
			delivery_status = $1,
			delivered_at = CASE WHEN $2 THEN NOW() ELSE delivered_at END
		WHERE provider_ref = $3
	`

	tag, err := r.db.Exec(ctx, query, state, delivered, providerRef)
	if err != nil {
		return 0, fmt.Errorf("failed to update delivery status: %w", err)
	}
	return tag.RowsAffected(), nil
}
