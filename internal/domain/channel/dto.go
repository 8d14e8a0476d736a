// internal/domain/channel/dto.go
package channel

type CreateConfigRequest struct {
	Kind       string                 `json:"kind" binding:"required"`
	RoutingKey string                 `json:"routing_key" binding:"required"`
	Settings   map[string]interface{} `json:"settings"`
}

type UpdateConfigRequest struct {
	RoutingKey *string                `json:"routing_key,omitempty"`
	IsActive   *bool                  `json:"is_active,omitempty"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
}

// Inbound is the channel-agnostic shape every provider webhook is
// normalized into before it reaches conversation storage.
type Inbound struct {
	Kind        Kind
	RoutingKey  string
	From        string // end-user identifier on the channel (phone number)
	Content     string
	ProviderRef string // provider message id, used for dedup and status correlation
	ProfileName string // optional display name (WhatsApp profile)
}

type DeliveryState string

const (
	DeliverySent        DeliveryState = "sent"
	DeliveryDelivered   DeliveryState = "delivered"
	DeliveryFailed      DeliveryState = "failed"
	DeliveryUndelivered DeliveryState = "undelivered"
)

// ValidDeliveryState reports whether s is a recognised provider state.
func ValidDeliveryState(s DeliveryState) bool {
	switch s {
	case DeliverySent, DeliveryDelivered, DeliveryFailed, DeliveryUndelivered:
		return true
	}
	return false
}

// StatusUpdate is a normalized delivery-status callback.
type StatusUpdate struct {
	Kind        Kind
	ProviderRef string
	State       DeliveryState
}
