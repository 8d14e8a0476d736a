// internal/domain/websocket/types.go
package websocket

import "time"

type ChannelType string

const (
	ChannelConversations ChannelType = "conversations"
)

type EventType string

const (
	EventNewMessage          EventType = "conversation.new_message"
	EventConversationUpdated EventType = "conversation.updated"
)

// WSMessage is the envelope pushed to dashboard clients.
type WSMessage struct {
	Channel   ChannelType `json:"channel"`
	Event     EventType   `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
