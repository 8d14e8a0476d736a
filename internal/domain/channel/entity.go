// internal/domain/channel/entity.go
package channel

import (
	"time"
)

type Kind string

const (
	KindSMS      Kind = "sms"
	KindWhatsApp Kind = "whatsapp"
)

// ValidKind reports whether k is a supported channel kind.
func ValidKind(k Kind) bool {
	return k == KindSMS || k == KindWhatsApp
}

// Config binds a provider routing key (destination phone number for SMS,
// phone-number-id for WhatsApp) to the business that owns it. The routing
// key must be unique among active configs of the same kind.
type Config struct {
	ID         int64 `json:"id" db:"id"`
	BusinessID int64 `json:"business_id" db:"business_id"`

	Kind       Kind   `json:"kind" db:"kind"`
	RoutingKey string `json:"routing_key" db:"routing_key"`
	IsActive   bool   `json:"is_active" db:"is_active"`

	// Provider-specific settings (sender id, API endpoint overrides, ...).
	// Never holds provider credentials; those live in process config.
	Settings map[string]interface{} `json:"settings,omitempty" db:"settings"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
