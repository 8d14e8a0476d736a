// internal/service/messaging/dispatcher_test.go
package messaging

import (
	"context"
	"fmt"
	"testing"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/channel"
	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/domain/knowledge"
	wsdomain "concierge-service/internal/domain/websocket"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- in-memory fakes ----

type fakeRoutes struct {
	cfg     *channel.Config
	matches int
}

func (f *fakeRoutes) FindActiveByRoute(_ context.Context, kind channel.Kind, key string) (*channel.Config, int, error) {
	if f.cfg == nil || f.cfg.Kind != kind || f.cfg.RoutingKey != key {
		return nil, 0, xerrors.ErrNotFound
	}
	return f.cfg, f.matches, nil
}

type fakeThreads struct {
	nextID        int64
	conversations map[string]*conversation.Conversation
	messages      []*conversation.Message
	lastDelivery  struct {
		ref       string
		state     string
		delivered bool
	}
	deliveryCalls int
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{conversations: make(map[string]*conversation.Conversation)}
}

func (f *fakeThreads) FindOrCreateChannelThread(_ context.Context, businessID int64, kind channel.Kind, peer string) (*conversation.Conversation, error) {
	key := fmt.Sprintf("%d/%s/%s", businessID, kind, peer)
	if c, ok := f.conversations[key]; ok {
		return c, nil
	}
	f.nextID++
	c := &conversation.Conversation{ID: f.nextID, BusinessID: businessID, Channel: string(kind)}
	f.conversations[key] = c
	return c, nil
}

func (f *fakeThreads) AppendMessage(_ context.Context, m *conversation.Message) error {
	f.nextID++
	m.ID = f.nextID
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeThreads) MessageExistsByProviderRef(_ context.Context, ref string) (bool, error) {
	for _, m := range f.messages {
		if m.ProviderRef.Valid && m.ProviderRef.String == ref {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeThreads) ListMessages(_ context.Context, conversationID int64) ([]*conversation.Message, error) {
	var out []*conversation.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeThreads) UpdateDeliveryByProviderRef(_ context.Context, ref, state string, delivered bool) (int64, error) {
	f.deliveryCalls++
	f.lastDelivery.ref = ref
	f.lastDelivery.state = state
	f.lastDelivery.delivered = delivered
	for _, m := range f.messages {
		if m.ProviderRef.Valid && m.ProviderRef.String == ref {
			return 1, nil
		}
	}
	return 0, nil
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

// fakeTiers stands in for the subscription service's effective-tier
// resolution; tests set it independently of the business row to model a
// lapsed grace window.
type fakeTiers struct {
	tier tier.Tier
}

func (f *fakeTiers) EffectiveTier(_ context.Context, _ int64) (tier.Tier, error) {
	return f.tier, nil
}

type fakeKnowledge struct{}

func (fakeKnowledge) ListByBusiness(_ context.Context, _ int64, _ bool) ([]*knowledge.Entry, error) {
	return nil, nil
}

type fakeGuests struct {
	touched []string
}

func (f *fakeGuests) TouchByPhone(_ context.Context, _ int64, phone, _ string) error {
	f.touched = append(f.touched, phone)
	return nil
}

// fakeDedup mimics the SETNX contract: the first sighting of a ref
// returns false and records it, every later sighting returns true.
type fakeDedup struct {
	seen map[string]bool
	err  error
}

func (f *fakeDedup) Seen(_ context.Context, kind, ref string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	key := kind + ":" + ref
	if f.seen[key] {
		return true, nil
	}
	f.seen[key] = true
	return false, nil
}

type fakeHub struct {
	events []wsdomain.WSMessage
}

func (f *fakeHub) BroadcastToBusiness(_ int64, msg wsdomain.WSMessage) {
	f.events = append(f.events, msg)
}

type fakeSender struct {
	ref   string
	err   error
	calls int
}

func (f *fakeSender) Send(_ context.Context, _ *channel.Config, _, _ string) (string, error) {
	f.calls++
	return f.ref, f.err
}

type fakeResponder struct {
	text string
}

func (f *fakeResponder) Reply(_ context.Context, _ *business.Business, _ []*knowledge.Entry, _ []*conversation.Message) (string, error) {
	return f.text, nil
}

// ---- fixtures ----

type dispatcherFixture struct {
	routes     *fakeRoutes
	threads    *fakeThreads
	businesses *fakeBusinesses
	tiers      *fakeTiers
	guests     *fakeGuests
	dedup      *fakeDedup
	hub        *fakeHub
	sender     *fakeSender
	dispatcher *Dispatcher
}

func newDispatcherFixture(t *testing.T, bizTier tier.Tier, responder *fakeResponder) *dispatcherFixture {
	t.Helper()

	f := &dispatcherFixture{
		routes: &fakeRoutes{
			cfg:     &channel.Config{ID: 1, BusinessID: 7, Kind: channel.KindSMS, RoutingKey: "+15550001", IsActive: true},
			matches: 1,
		},
		threads: newFakeThreads(),
		businesses: &fakeBusinesses{byID: map[int64]*business.Business{
			7: {ID: 7, Name: "Savanna Lodge", Email: "host@savanna.example", Tier: bizTier},
		}},
		tiers:  &fakeTiers{tier: bizTier},
		guests: &fakeGuests{},
		dedup:  &fakeDedup{},
		hub:    &fakeHub{},
		sender: &fakeSender{ref: "SM_out_1"},
	}

	d := NewDispatcher(
		f.routes, f.threads, f.businesses, f.tiers, fakeKnowledge{}, f.guests, f.dedup,
		nil, f.sender, f.hub, "verify-secret", zap.NewNop(),
	)
	// A typed nil *fakeResponder would defeat the dispatcher's nil check,
	// so the responder is only wired when a test provides one.
	if responder != nil {
		d.responder = responder
	}
	f.dispatcher = d
	return f
}

func inboundSMS(ref string) *channel.Inbound {
	return &channel.Inbound{
		Kind:        channel.KindSMS,
		RoutingKey:  "+15550001",
		From:        "+254700111222",
		Content:     "Do you have rooms this weekend?",
		ProviderRef: ref,
	}
}

// ---- tests ----

func TestHandleInbound_UnresolvedRouteIsAckedWithoutWrites(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierProfessional, nil)

	in := inboundSMS("SM1")
	in.RoutingKey = "+19999999" // nobody owns this number

	err := f.dispatcher.HandleInbound(context.Background(), in)

	require.NoError(t, err)
	assert.Empty(t, f.threads.messages)
	assert.Empty(t, f.hub.events)
}

func TestHandleInbound_DuplicateDeliverySuppressed(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, nil)

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))
	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	assert.Len(t, f.threads.messages, 1, "redelivery must not store a second copy")
}

func TestHandleInbound_DedupFallsBackToStoreWhenCacheDown(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, nil)
	f.dedup.err = fmt.Errorf("redis: connection refused")

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))
	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	assert.Len(t, f.threads.messages, 1)
}

func TestHandleInbound_AmbiguousRouteStillDelivers(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, nil)
	f.routes.matches = 2 // two active configs claim the key; resolver picked lowest id

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	require.Len(t, f.threads.messages, 1)
	conv, err := f.threads.FindOrCreateChannelThread(context.Background(), 7, channel.KindSMS, "+254700111222")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, f.threads.messages[0].ConversationID)
}

func TestHandleInbound_StarterTierPersistsButDoesNotReply(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, &fakeResponder{text: "We do!"})

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	require.Len(t, f.threads.messages, 1)
	assert.Equal(t, conversation.RoleUser, f.threads.messages[0].Role)
	assert.Zero(t, f.sender.calls, "no outbound send below the multi-channel tier")
}

func TestHandleInbound_ExpiredGracePersistsButDoesNotReply(t *testing.T) {
	// The business row still says professional, but the payment-failure
	// grace window has lapsed, so the effective tier is already starter.
	f := newDispatcherFixture(t, tier.TierProfessional, &fakeResponder{text: "We do!"})
	f.tiers.tier = tier.TierStarter

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	require.Len(t, f.threads.messages, 1)
	assert.Equal(t, conversation.RoleUser, f.threads.messages[0].Role)
	assert.Zero(t, f.sender.calls, "degraded tenant must not get professional auto-replies")
}

func TestHandleInbound_ProfessionalTierGetsAssistantReply(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierProfessional, &fakeResponder{text: "Yes, we have availability."})

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	require.Len(t, f.threads.messages, 2)
	reply := f.threads.messages[1]
	assert.Equal(t, conversation.RoleAssistant, reply.Role)
	assert.Equal(t, "Yes, we have availability.", reply.Content)
	require.True(t, reply.ProviderRef.Valid)
	assert.Equal(t, "SM_out_1", reply.ProviderRef.String)
	assert.Equal(t, string(channel.DeliverySent), reply.DeliveryStatus.String)
	assert.Equal(t, 1, f.sender.calls)
	assert.Len(t, f.hub.events, 2, "user message and reply both broadcast")
}

func TestHandleInbound_SendFailureStillStoresReply(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierProfessional, &fakeResponder{text: "Yes."})
	f.sender.err = fmt.Errorf("provider 500")
	f.sender.ref = ""

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	require.Len(t, f.threads.messages, 2)
	assert.False(t, f.threads.messages[1].ProviderRef.Valid)
}

func TestHandleInbound_TouchesGuestProfile(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, nil)

	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	assert.Equal(t, []string{"+254700111222"}, f.guests.touched)
}

func TestHandleDeliveryStatus_UnknownRefIsIgnored(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, nil)

	err := f.dispatcher.HandleDeliveryStatus(context.Background(), &channel.StatusUpdate{
		Kind:        channel.KindSMS,
		ProviderRef: "SM_never_seen",
		State:       channel.DeliveryDelivered,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, f.threads.deliveryCalls)
}

func TestHandleDeliveryStatus_InvalidStateNeverTouchesStore(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierStarter, nil)

	err := f.dispatcher.HandleDeliveryStatus(context.Background(), &channel.StatusUpdate{
		Kind:        channel.KindSMS,
		ProviderRef: "SM1",
		State:       channel.DeliveryState("queued-by-martians"),
	})

	require.NoError(t, err)
	assert.Zero(t, f.threads.deliveryCalls)
}

func TestHandleDeliveryStatus_MarksDelivered(t *testing.T) {
	f := newDispatcherFixture(t, tier.TierProfessional, &fakeResponder{text: "Sure."})
	require.NoError(t, f.dispatcher.HandleInbound(context.Background(), inboundSMS("SM1")))

	err := f.dispatcher.HandleDeliveryStatus(context.Background(), &channel.StatusUpdate{
		Kind:        channel.KindSMS,
		ProviderRef: "SM_out_1",
		State:       channel.DeliveryDelivered,
	})

	require.NoError(t, err)
	assert.Equal(t, "SM_out_1", f.threads.lastDelivery.ref)
	assert.Equal(t, string(channel.DeliveryDelivered), f.threads.lastDelivery.state)
	assert.True(t, f.threads.lastDelivery.delivered)
}

func TestVerifyWhatsApp(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, "verify-secret", zap.NewNop())

	challenge, ok := d.VerifyWhatsApp("subscribe", "verify-secret", "12345")
	require.True(t, ok)
	assert.Equal(t, "12345", challenge)

	_, ok = d.VerifyWhatsApp("subscribe", "wrong", "12345")
	assert.False(t, ok)

	_, ok = d.VerifyWhatsApp("unsubscribe", "verify-secret", "12345")
	assert.False(t, ok)

	empty := NewDispatcher(nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, "", zap.NewNop())
	_, ok = empty.VerifyWhatsApp("subscribe", "", "12345")
	assert.False(t, ok, "unconfigured verify token must never match")
}
