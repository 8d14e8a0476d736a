// internal/domain/conversation/dto.go
package conversation

type RateRequest struct {
	ConversationID int64  `json:"conversationId" binding:"required"`
	Rating         int    `json:"rating" binding:"required,min=1,max=5"`
	Feedback       string `json:"feedback"`
}

// PatchRequest only touches the fields that are present.
type PatchRequest struct {
	ConversationID int64 `json:"conversationId" binding:"required"`
	Satisfaction   *int  `json:"satisfaction,omitempty"`
	Resolved       *bool `json:"resolved,omitempty"`
}

type WidgetMessageRequest struct {
	BusinessID int64  `json:"businessId" binding:"required"`
	SessionID  string `json:"sessionId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

type WidgetMessageResponse struct {
	ConversationID int64    `json:"conversationId"`
	UserMessage    *Message `json:"userMessage"`
	Reply          *Message `json:"reply,omitempty"`
}

type Detail struct {
	Conversation *Conversation `json:"conversation"`
	Messages     []*Message    `json:"messages"`
}
