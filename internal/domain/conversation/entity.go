// internal/domain/conversation/entity.go
package conversation

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Conversation is a thread of messages between one end-user and a
// business's concierge, over the widget or a messaging channel.
type Conversation struct {
	ID         int64 `json:"id" db:"id"`
	BusinessID int64 `json:"business_id" db:"business_id"`

	// SessionID identifies anonymous widget visitors; Channel/Peer
	// identify messaging-channel threads (peer = end-user phone).
	SessionID sql.NullString `json:"session_id,omitempty" db:"session_id"`
	Channel   string         `json:"channel" db:"channel"` // widget | sms | whatsapp
	Peer      sql.NullString `json:"peer,omitempty" db:"peer"`

	Satisfaction sql.NullInt32 `json:"satisfaction,omitempty" db:"satisfaction"`
	// Resolved is not a terminal lock; resolved conversations still
	// accept new messages.
	Resolved bool `json:"resolved" db:"resolved"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is one ordered entry in a conversation.
type Message struct {
	ID             int64          `json:"id" db:"id"`
	ConversationID int64          `json:"conversation_id" db:"conversation_id"`
	Role           Role           `json:"role" db:"role"`
	Content        string         `json:"content" db:"content"`

	// ProviderRef correlates asynchronous delivery-status callbacks.
	ProviderRef    sql.NullString `json:"provider_ref,omitempty" db:"provider_ref"`
	DeliveryStatus sql.NullString `json:"delivery_status,omitempty" db:"delivery_status"`
	DeliveredAt    sql.NullTime   `json:"delivered_at,omitempty" db:"delivered_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Summary is one inbox row: a conversation with its latest message and
// total message count.
type Summary struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	MessageCount int          `json:"message_count"`
}
