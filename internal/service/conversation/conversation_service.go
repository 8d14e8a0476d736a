// internal/service/conversation/conversation_service.go
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/domain/knowledge"
	wsdomain "concierge-service/internal/domain/websocket"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/service/ai"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ChannelWidget is the channel value for embeddable-widget threads.
const ChannelWidget = "widget"

// Stores are narrowed to what this service needs so tests can run
// against in-memory fakes.
type conversationStore interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	FindByID(ctx context.Context, id int64) (*conversation.Conversation, error)
	FindLatestBySession(ctx context.Context, sessionID string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, m *conversation.Message) error
	ListMessages(ctx context.Context, conversationID int64) ([]*conversation.Message, error)
	ListSummaries(ctx context.Context, businessID int64, limit, offset int) ([]*conversation.Summary, error)
	Rate(ctx context.Context, conversationID int64, rating int, feedback string) error
	Patch(ctx context.Context, req *conversation.PatchRequest) error
}

type businessFinder interface {
	FindByID(ctx context.Context, id int64) (*business.Business, error)
}

type knowledgeLister interface {
	ListByBusiness(ctx context.Context, businessID int64, activeOnly bool) ([]*knowledge.Entry, error)
}

type guestToucher interface {
	TouchBySession(ctx context.Context, businessID int64, sessionID string) error
}

type broadcaster interface {
	BroadcastToBusiness(businessID int64, msg wsdomain.WSMessage)
}

type ConversationService struct {
	conversations conversationStore
	businesses    businessFinder
	knowledge     knowledgeLister
	guests        guestToucher
	responder     ai.Responder
	hub           broadcaster
	logger        *zap.Logger
}

func NewConversationService(
	conversations conversationStore,
	businesses businessFinder,
	knowledge knowledgeLister,
	guests guestToucher,
	responder ai.Responder,
	hub broadcaster,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		businesses:    businesses,
		knowledge:     knowledge,
		guests:        guests,
		responder:     responder,
		hub:           hub,
		logger:        logger,
	}
}

// GetDetail returns a conversation with its messages in ascending order.
// A conversation owned by another business is indistinguishable from a
// missing one.
func (s *ConversationService) GetDetail(ctx context.Context, businessID, conversationID int64) (*conversation.Detail, error) {
	c, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c.BusinessID != businessID {
		return nil, xerrors.ErrNotFound
	}

	msgs, err := s.conversations.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &conversation.Detail{Conversation: c, Messages: msgs}, nil
}

// ListInbox returns the business's conversations, most recently updated
// first, with page bounds clamped.
func (s *ConversationService) ListInbox(ctx context.Context, businessID int64, limit, offset int) ([]*conversation.Summary, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.conversations.ListSummaries(ctx, businessID, limit, offset)
}

// GetBySession returns the latest conversation for an anonymous widget
// session, or nil if the session never started one. Supports resuming a
// widget chat without authentication.
func (s *ConversationService) GetBySession(ctx context.Context, sessionID string) (*conversation.Detail, error) {
	c, err := s.conversations.FindLatestBySession(ctx, sessionID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	msgs, err := s.conversations.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &conversation.Detail{Conversation: c, Messages: msgs}, nil
}

// Rate records end-user satisfaction: rating sets the score and marks
// the conversation resolved, feedback lands as a system message. Both
// writes happen in one transaction at the store.
func (s *ConversationService) Rate(ctx context.Context, req *conversation.RateRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return xerrors.ErrInvalidInput
	}
	if err := s.conversations.Rate(ctx, req.ConversationID, req.Rating, req.Feedback); err != nil {
		return err
	}

	s.broadcast(ctx, req.ConversationID, wsdomain.EventConversationUpdated)
	return nil
}

// Patch applies a partial update to a conversation the business owns.
func (s *ConversationService) Patch(ctx context.Context, businessID int64, req *conversation.PatchRequest) error {
	c, err := s.conversations.FindByID(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	if c.BusinessID != businessID {
		return xerrors.ErrNotFound
	}
	if req.Satisfaction != nil && (*req.Satisfaction < 1 || *req.Satisfaction > 5) {
		return xerrors.ErrInvalidInput
	}
	return s.conversations.Patch(ctx, req)
}

// WidgetMessage handles one end-user turn from the embeddable widget:
// the conversation is auto-created on the session's first message, the
// user message always persists, and the assistant reply is best effort.
func (s *ConversationService) WidgetMessage(ctx context.Context, req *conversation.WidgetMessageRequest) (*conversation.WidgetMessageResponse, error) {
	biz, err := s.businesses.FindByID(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindLatestBySession(ctx, req.SessionID)
	if errors.Is(err, xerrors.ErrNotFound) || (err == nil && conv.BusinessID != biz.ID) {
		conv = &conversation.Conversation{
			BusinessID: biz.ID,
			SessionID:  sql.NullString{String: req.SessionID, Valid: true},
			Channel:    ChannelWidget,
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	userMsg := &conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleUser,
		Content:        req.Content,
	}
	if err := s.conversations.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	if s.guests != nil {
		if err := s.guests.TouchBySession(ctx, biz.ID, req.SessionID); err != nil {
			s.logger.Warn("guest upsert failed", zap.Error(err))
		}
	}

	resp := &conversation.WidgetMessageResponse{
		ConversationID: conv.ID,
		UserMessage:    userMsg,
	}

	if reply := s.generateReply(ctx, biz, conv.ID); reply != nil {
		resp.Reply = reply
	}

	if s.hub != nil {
		s.hub.BroadcastToBusiness(biz.ID, wsdomain.WSMessage{
			Channel:   wsdomain.ChannelConversations,
			Event:     wsdomain.EventNewMessage,
			Payload:   resp,
			Timestamp: time.Now(),
		})
	}

	return resp, nil
}

// generateReply asks the responder for the next assistant turn and
// persists it. Any failure is logged and swallowed; the user message is
// already stored.
func (s *ConversationService) generateReply(ctx context.Context, biz *business.Business, conversationID int64) *conversation.Message {
	if s.responder == nil {
		return nil
	}

	history, err := s.conversations.ListMessages(ctx, conversationID)
	if err != nil {
		s.logger.Warn("failed to load reply context", zap.Error(err))
		return nil
	}

	var entries []*knowledge.Entry
	if s.knowledge != nil {
		entries, err = s.knowledge.ListByBusiness(ctx, biz.ID, true)
		if err != nil {
			s.logger.Warn("failed to load knowledge entries", zap.Error(err))
		}
	}

	text, err := s.responder.Reply(ctx, biz, entries, history)
	if err != nil || text == "" {
		return nil
	}

	reply := &conversation.Message{
		ConversationID: conversationID,
		Role:           conversation.RoleAssistant,
		Content:        text,
	}
	if err := s.conversations.AppendMessage(ctx, reply); err != nil {
		s.logger.Error("failed to store assistant reply", zap.Error(err))
		return nil
	}
	return reply
}

func (s *ConversationService) broadcast(ctx context.Context, conversationID int64, event wsdomain.EventType) {
	if s.hub == nil {
		return
	}
	c, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return
	}
	s.hub.BroadcastToBusiness(c.BusinessID, wsdomain.WSMessage{
		Channel:   wsdomain.ChannelConversations,
		Event:     event,
		Payload:   c,
		Timestamp: time.Now(),
	})
}
