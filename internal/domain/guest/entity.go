// internal/domain/guest/entity.go
package guest

import (
	"database/sql"
	"time"
)

// Guest is an end-user profile accumulated across conversations with a
// business: a returning widget visitor or a known phone number.
type Guest struct {
	ID         int64 `json:"id" db:"id"`
	BusinessID int64 `json:"business_id" db:"business_id"`

	Phone     sql.NullString `json:"phone,omitempty" db:"phone"`
	SessionID sql.NullString `json:"session_id,omitempty" db:"session_id"`
	Name      sql.NullString `json:"name,omitempty" db:"name"`
	Notes     sql.NullString `json:"notes,omitempty" db:"notes"`

	VisitCount int       `json:"visit_count" db:"visit_count"`
	LastSeenAt time.Time `json:"last_seen_at" db:"last_seen_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
