// internal/service/ai/responder.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/domain/knowledge"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Responder generates assistant replies for a business's conversations.
// The messaging dispatcher and the widget treat reply generation as
// best-effort: an error here never blocks message persistence.
type Responder interface {
	Reply(ctx context.Context, biz *business.Business, entries []*knowledge.Entry, history []*conversation.Message) (string, error)
}

type GPTResponder struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

func NewGPTResponder(apiKey, model string, maxTokens int, temperature float32, logger *zap.Logger) *GPTResponder {
	return &GPTResponder{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// historyWindow bounds how much conversation context is sent per request.
const historyWindow = 20

// Reply builds the prompt from the business profile and active knowledge
// entries, then asks the model for the next assistant turn.
func (r *GPTResponder) Reply(ctx context.Context, biz *business.Business, entries []*knowledge.Entry, history []*conversation.Message) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: buildSystemPrompt(biz, entries),
		},
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == conversation.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		if m.Role == conversation.RoleSystem {
			// Internal notes (e.g. rating feedback) are not model context.
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		r.logger.Error("chat completion failed",
			zap.Error(err),
			zap.Int64("business_id", biz.ID),
		)
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildSystemPrompt(biz *business.Business, entries []*knowledge.Entry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are the guest concierge for %s", biz.Name)
	if biz.BusinessType.Valid {
		fmt.Fprintf(&sb, ", a %s", biz.BusinessType.String)
	}
	sb.WriteString(". Answer guest questions helpfully and concisely. ")
	sb.WriteString("If you do not know an answer, say so and offer to pass the question to staff.\n")

	if biz.BusinessInfo.Valid && biz.BusinessInfo.String != "" {
		sb.WriteString("\nAbout the business:\n")
		sb.WriteString(biz.BusinessInfo.String)
		sb.WriteString("\n")
	}

	if len(entries) > 0 {
		sb.WriteString("\nKnowledge base:\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "## %s\n%s\n", e.Title, e.Content)
		}
	}

	return sb.String()
}
