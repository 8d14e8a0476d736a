// internal/handlers/webhook/webhook_handler_test.go
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/channel"
	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/domain/knowledge"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"
	"concierge-service/internal/service/messaging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes behind the dispatcher ----

type stubRoutes struct {
	cfg *channel.Config
}

func (s *stubRoutes) FindActiveByRoute(_ context.Context, kind channel.Kind, key string) (*channel.Config, int, error) {
	if s.cfg == nil || s.cfg.Kind != kind || s.cfg.RoutingKey != key {
		return nil, 0, xerrors.ErrNotFound
	}
	return s.cfg, 1, nil
}

type stubThreads struct {
	nextID   int64
	messages []*conversation.Message
}

func (s *stubThreads) FindOrCreateChannelThread(_ context.Context, businessID int64, kind channel.Kind, _ string) (*conversation.Conversation, error) {
	return &conversation.Conversation{ID: 1, BusinessID: businessID, Channel: string(kind)}, nil
}

func (s *stubThreads) AppendMessage(_ context.Context, m *conversation.Message) error {
	s.nextID++
	m.ID = s.nextID
	s.messages = append(s.messages, m)
	return nil
}

func (s *stubThreads) MessageExistsByProviderRef(_ context.Context, ref string) (bool, error) {
	for _, m := range s.messages {
		if m.ProviderRef.Valid && m.ProviderRef.String == ref {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubThreads) ListMessages(_ context.Context, conversationID int64) ([]*conversation.Message, error) {
	return nil, nil
}

func (s *stubThreads) UpdateDeliveryByProviderRef(_ context.Context, ref, state string, delivered bool) (int64, error) {
	for _, m := range s.messages {
		if m.ProviderRef.Valid && m.ProviderRef.String == ref {
			return 1, nil
		}
	}
	return 0, nil
}

type stubBusinesses struct{}

func (stubBusinesses) FindByID(_ context.Context, id int64) (*business.Business, error) {
	return &business.Business{ID: id, Name: "Savanna Lodge", Tier: tier.TierStarter}, nil
}

type stubTiers struct{}

func (stubTiers) EffectiveTier(_ context.Context, _ int64) (tier.Tier, error) {
	return tier.TierStarter, nil
}

type stubKnowledge struct{}

func (stubKnowledge) ListByBusiness(_ context.Context, _ int64, _ bool) ([]*knowledge.Entry, error) {
	return nil, nil
}

type stubGuests struct{}

func (stubGuests) TouchByPhone(_ context.Context, _ int64, _, _ string) error { return nil }

// ---- fixture ----

type handlerFixture struct {
	threads *stubThreads
	router  *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	threads := &stubThreads{}
	dispatcher := messaging.NewDispatcher(
		&stubRoutes{cfg: &channel.Config{ID: 1, BusinessID: 7, Kind: channel.KindWhatsApp, RoutingKey: "1067890", IsActive: true}},
		threads, stubBusinesses{}, stubTiers{}, stubKnowledge{}, stubGuests{},
		nil, nil, nil, nil, "verify-secret", zap.NewNop(),
	)
	h := NewWebhookHandler(dispatcher, zap.NewNop())

	r := gin.New()
	r.POST("/channels/sms/webhook", h.SMSInbound)
	r.POST("/channels/sms/status", h.SMSStatus)
	r.POST("/channels/whatsapp/webhook", h.WhatsAppInbound)
	r.GET("/channels/whatsapp/webhook", h.WhatsAppVerify)

	return &handlerFixture{threads: threads, router: r}
}

func (f *handlerFixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestSMSInbound_AlwaysAcks(t *testing.T) {
	f := newHandlerFixture(t)

	cases := []url.Values{
		{}, // missing everything
		{"From": {"+254700111222"}}, // missing To
		{"To": {"+19999999"}, "From": {"+254700111222"}, "Body": {"hi"}}, // unresolved route
	}
	for _, form := range cases {
		w := f.postForm("/channels/sms/webhook", form)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Empty(t, f.threads.messages)
}

func TestSMSStatus_UnknownRefStillAcks(t *testing.T) {
	f := newHandlerFixture(t)

	form := url.Values{"MessageSid": {"SM_unknown"}, "MessageStatus": {"delivered"}}
	w := f.postForm("/channels/sms/status", form)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWhatsAppInbound_BatchedDelivery(t *testing.T) {
	f := newHandlerFixture(t)

	body := `{
		"entry": [{
			"changes": [{
				"value": {
					"metadata": {"phone_number_id": "1067890"},
					"messages": [
						{"id": "wamid.1", "from": "254700111222", "type": "text", "text": {"body": "Jambo"}},
						{"id": "wamid.2", "from": "254700333444", "type": "text", "text": {"body": "Any rooms?"}}
					]
				}
			}]
		}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/channels/whatsapp/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.threads.messages, 2)
}

func TestWhatsAppInbound_MalformedBodyAcks(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/channels/whatsapp/webhook", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.threads.messages)
}

func TestWhatsAppVerify_Handshake(t *testing.T) {
	f := newHandlerFixture(t)

	path := fmt.Sprintf("/channels/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=%s&hub.challenge=987654", "verify-secret")
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "987654", w.Body.String())
}

func TestWhatsAppVerify_BadToken(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/channels/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=987654", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
