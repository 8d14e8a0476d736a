// internal/domain/business/entity.go
package business

import (
	"database/sql"
	"time"

	"concierge-service/internal/pkg/tier"
)

type BusinessStatus string

const (
	StatusActive   BusinessStatus = "active"
	StatusInactive BusinessStatus = "inactive"
)

// Business is a tenant account: a hotel, tour operator or rental host
// running the concierge widget.
type Business struct {
	ID           int64          `json:"id" db:"id"`
	Email        string         `json:"email" db:"email"`
	PasswordHash string         `json:"-" db:"password_hash"`
	Name         string         `json:"name" db:"name"`
	BusinessType sql.NullString `json:"business_type,omitempty" db:"business_type"`

	// Tier is normalized on every read; see tier.Normalize.
	Tier   tier.Tier      `json:"tier" db:"tier"`
	Status BusinessStatus `json:"status" db:"status"`

	// Widget branding
	BrandColor     sql.NullString `json:"brand_color,omitempty" db:"brand_color"`
	LogoURL        sql.NullString `json:"logo_url,omitempty" db:"logo_url"`
	WelcomeMessage sql.NullString `json:"welcome_message,omitempty" db:"welcome_message"`

	// Free-form description fed into the assistant prompt
	BusinessInfo sql.NullString `json:"business_info,omitempty" db:"business_info"`

	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt sql.NullTime `json:"deleted_at,omitempty" db:"deleted_at"`
}
