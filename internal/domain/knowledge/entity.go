// internal/domain/knowledge/entity.go
package knowledge

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Entry is one knowledge-base document fed into the assistant prompt.
type Entry struct {
	ID         int64 `json:"id" db:"id"`
	BusinessID int64 `json:"business_id" db:"business_id"`

	Title    string         `json:"title" db:"title"`
	Content  string         `json:"content" db:"content"`
	Tags     pq.StringArray `json:"tags,omitempty" db:"tags"`
	IsActive bool           `json:"is_active" db:"is_active"`

	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt sql.NullTime `json:"deleted_at,omitempty" db:"deleted_at"`
}
