// internal/service/conversation/conversation_service_test.go
package conversation

import (
	"context"
	"database/sql"
	"testing"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/domain/knowledge"
	wsdomain "concierge-service/internal/domain/websocket"
	xerrors "concierge-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes ----

type fakeStore struct {
	nextID        int64
	conversations map[int64]*conversation.Conversation
	messages      []*conversation.Message
	rated         *struct {
		conversationID int64
		rating         int
		feedback       string
	}
	patched *conversation.PatchRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[int64]*conversation.Conversation)}
}

func (f *fakeStore) Create(_ context.Context, c *conversation.Conversation) error {
	f.nextID++
	c.ID = f.nextID
	f.conversations[c.ID] = c
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*conversation.Conversation, error) {
	if c, ok := f.conversations[id]; ok {
		return c, nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeStore) FindLatestBySession(_ context.Context, sessionID string) (*conversation.Conversation, error) {
	var latest *conversation.Conversation
	for _, c := range f.conversations {
		if c.SessionID.Valid && c.SessionID.String == sessionID {
			if latest == nil || c.ID > latest.ID {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, xerrors.ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, m *conversation.Message) error {
	f.nextID++
	m.ID = f.nextID
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID int64) ([]*conversation.Message, error) {
	var out []*conversation.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSummaries(_ context.Context, businessID int64, limit, offset int) ([]*conversation.Summary, error) {
	var out []*conversation.Summary
	for _, c := range f.conversations {
		if c.BusinessID == businessID {
			out = append(out, &conversation.Summary{Conversation: *c})
		}
	}
	return out, nil
}

func (f *fakeStore) Rate(_ context.Context, conversationID int64, rating int, feedback string) error {
	c, ok := f.conversations[conversationID]
	if !ok {
		return xerrors.ErrNotFound
	}
	c.Satisfaction = sql.NullInt32{Int32: int32(rating), Valid: true}
	c.Resolved = true
	if feedback != "" {
		f.messages = append(f.messages, &conversation.Message{
			ConversationID: conversationID,
			Role:           conversation.RoleSystem,
			Content:        feedback,
		})
	}
	f.rated = &struct {
		conversationID int64
		rating         int
		feedback       string
	}{conversationID, rating, feedback}
	return nil
}

func (f *fakeStore) Patch(_ context.Context, req *conversation.PatchRequest) error {
	f.patched = req
	return nil
}

type fakeBusinesses struct {
	byID map[int64]*business.Business
}

func (f *fakeBusinesses) FindByID(_ context.Context, id int64) (*business.Business, error) {
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeKnowledge struct{}

func (fakeKnowledge) ListByBusiness(_ context.Context, _ int64, _ bool) ([]*knowledge.Entry, error) {
	return nil, nil
}

type fakeGuests struct {
	sessions []string
}

func (f *fakeGuests) TouchBySession(_ context.Context, _ int64, sessionID string) error {
	f.sessions = append(f.sessions, sessionID)
	return nil
}

type fakeHub struct {
	events []wsdomain.WSMessage
}

func (f *fakeHub) BroadcastToBusiness(_ int64, msg wsdomain.WSMessage) {
	f.events = append(f.events, msg)
}

type fakeResponder struct {
	text string
}

func (f *fakeResponder) Reply(_ context.Context, _ *business.Business, _ []*knowledge.Entry, _ []*conversation.Message) (string, error) {
	return f.text, nil
}

type fixture struct {
	store  *fakeStore
	guests *fakeGuests
	hub    *fakeHub
	svc    *ConversationService
}

func newFixture(t *testing.T, responder *fakeResponder) *fixture {
	t.Helper()

	f := &fixture{
		store:  newFakeStore(),
		guests: &fakeGuests{},
		hub:    &fakeHub{},
	}
	businesses := &fakeBusinesses{byID: map[int64]*business.Business{
		7: {ID: 7, Name: "Savanna Lodge"},
	}}
	f.svc = NewConversationService(f.store, businesses, fakeKnowledge{}, f.guests, nil, f.hub, zap.NewNop())
	if responder != nil {
		f.svc.responder = responder
	}
	return f
}

// ---- tests ----

func TestWidgetMessage_AutoCreatesConversation(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.WidgetMessage(context.Background(), &conversation.WidgetMessageRequest{
		BusinessID: 7, SessionID: "sess-1", Content: "Hi there",
	})
	require.NoError(t, err)

	require.NotZero(t, resp.ConversationID)
	require.NotNil(t, resp.UserMessage)
	assert.Equal(t, conversation.RoleUser, resp.UserMessage.Role)
	assert.Nil(t, resp.Reply, "no responder configured")

	conv := f.store.conversations[resp.ConversationID]
	require.NotNil(t, conv)
	assert.Equal(t, ChannelWidget, conv.Channel)
	assert.Equal(t, "sess-1", conv.SessionID.String)
	assert.Equal(t, []string{"sess-1"}, f.guests.sessions)
	assert.Len(t, f.hub.events, 1)
}

func TestWidgetMessage_ReusesSessionConversation(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.WidgetMessage(context.Background(), &conversation.WidgetMessageRequest{
		BusinessID: 7, SessionID: "sess-1", Content: "Hi",
	})
	require.NoError(t, err)

	second, err := f.svc.WidgetMessage(context.Background(), &conversation.WidgetMessageRequest{
		BusinessID: 7, SessionID: "sess-1", Content: "Still there?",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Len(t, f.store.conversations, 1)
}

func TestWidgetMessage_RepliesWhenResponderConfigured(t *testing.T) {
	f := newFixture(t, &fakeResponder{text: "Karibu! How can I help?"})

	resp, err := f.svc.WidgetMessage(context.Background(), &conversation.WidgetMessageRequest{
		BusinessID: 7, SessionID: "sess-1", Content: "Hi",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Reply)
	assert.Equal(t, conversation.RoleAssistant, resp.Reply.Role)
	assert.Equal(t, "Karibu! How can I help?", resp.Reply.Content)
	assert.Len(t, f.store.messages, 2)
}

func TestWidgetMessage_UnknownBusiness(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.WidgetMessage(context.Background(), &conversation.WidgetMessageRequest{
		BusinessID: 99, SessionID: "sess-1", Content: "Hi",
	})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestGetBySession_NilWhenSessionNeverStarted(t *testing.T) {
	f := newFixture(t, nil)

	detail, err := f.svc.GetBySession(context.Background(), "fresh-session")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestRate_SetsSatisfactionAndResolves(t *testing.T) {
	f := newFixture(t, nil)

	conv := &conversation.Conversation{BusinessID: 7, Channel: ChannelWidget}
	require.NoError(t, f.store.Create(context.Background(), conv))

	err := f.svc.Rate(context.Background(), &conversation.RateRequest{
		ConversationID: conv.ID, Rating: 5, Feedback: "Great service",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 5, conv.Satisfaction.Int32)
	assert.True(t, conv.Resolved)

	msgs, _ := f.store.ListMessages(context.Background(), conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.RoleSystem, msgs[0].Role)
	assert.Equal(t, "Great service", msgs[0].Content)

	require.Len(t, f.hub.events, 1)
	assert.Equal(t, wsdomain.EventConversationUpdated, f.hub.events[0].Event)
}

func TestRate_RejectsOutOfRangeRating(t *testing.T) {
	f := newFixture(t, nil)

	for _, rating := range []int{0, 6, -1} {
		err := f.svc.Rate(context.Background(), &conversation.RateRequest{ConversationID: 1, Rating: rating})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	}
	assert.Nil(t, f.store.rated)
}

func TestGetDetail_OtherTenantLooksMissing(t *testing.T) {
	f := newFixture(t, nil)

	conv := &conversation.Conversation{BusinessID: 42, Channel: ChannelWidget}
	require.NoError(t, f.store.Create(context.Background(), conv))

	_, err := f.svc.GetDetail(context.Background(), 7, conv.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestPatch_OtherTenantLooksMissing(t *testing.T) {
	f := newFixture(t, nil)

	conv := &conversation.Conversation{BusinessID: 42, Channel: ChannelWidget}
	require.NoError(t, f.store.Create(context.Background(), conv))

	resolved := true
	err := f.svc.Patch(context.Background(), 7, &conversation.PatchRequest{
		ConversationID: conv.ID, Resolved: &resolved,
	})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	assert.Nil(t, f.store.patched)
}

func TestPatch_ValidatesSatisfactionRange(t *testing.T) {
	f := newFixture(t, nil)

	conv := &conversation.Conversation{BusinessID: 7, Channel: ChannelWidget}
	require.NoError(t, f.store.Create(context.Background(), conv))

	bad := 9
	err := f.svc.Patch(context.Background(), 7, &conversation.PatchRequest{
		ConversationID: conv.ID, Satisfaction: &bad,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestListInbox_ClampsPageBounds(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Create(context.Background(), &conversation.Conversation{BusinessID: 7, Channel: ChannelWidget}))
	}

	out, err := f.svc.ListInbox(context.Background(), 7, -5, -5)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}
