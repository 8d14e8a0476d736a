// internal/service/messaging/dispatcher.go
package messaging

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"concierge-service/internal/domain/business"
	"concierge-service/internal/domain/channel"
	"concierge-service/internal/domain/conversation"
	"concierge-service/internal/domain/knowledge"
	wsdomain "concierge-service/internal/domain/websocket"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/tier"
	"concierge-service/internal/service/ai"

	"go.uber.org/zap"
)

// Store surfaces the dispatcher needs, narrowed so tests can use
// in-memory fakes instead of Postgres/Redis.
type routeResolver interface {
	FindActiveByRoute(ctx context.Context, kind channel.Kind, routingKey string) (*channel.Config, int, error)
}

type threadStore interface {
	FindOrCreateChannelThread(ctx context.Context, businessID int64, kind channel.Kind, peer string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, m *conversation.Message) error
	MessageExistsByProviderRef(ctx context.Context, providerRef string) (bool, error)
	ListMessages(ctx context.Context, conversationID int64) ([]*conversation.Message, error)
	UpdateDeliveryByProviderRef(ctx context.Context, providerRef, state string, delivered bool) (int64, error)
}

type businessFinder interface {
	FindByID(ctx context.Context, id int64) (*business.Business, error)
}

// tierResolver yields the tier access checks should honor right now,
// grace expiry included. The raw business row lags behind billing state
// until a dashboard read persists the degrade, so the reply gate must
// not trust it.
type tierResolver interface {
	EffectiveTier(ctx context.Context, businessID int64) (tier.Tier, error)
}

type knowledgeLister interface {
	ListByBusiness(ctx context.Context, businessID int64, activeOnly bool) ([]*knowledge.Entry, error)
}

type guestToucher interface {
	TouchByPhone(ctx context.Context, businessID int64, phone, name string) error
}

type replayChecker interface {
	Seen(ctx context.Context, kind, providerRef string) (bool, error)
}

type broadcaster interface {
	BroadcastToBusiness(businessID int64, msg wsdomain.WSMessage)
}

// Dispatcher is the unified inbound router: provider webhooks of every
// kind funnel through HandleInbound / HandleDeliveryStatus. Errors are
// absorbed here; webhook handlers always acknowledge the provider with
// success so nothing triggers a retry storm.
type Dispatcher struct {
	routes        routeResolver
	conversations threadStore
	businesses    businessFinder
	tiers         tierResolver
	knowledge     knowledgeLister
	guests        guestToucher
	dedup         replayChecker
	responder     ai.Responder
	sender        Sender
	hub           broadcaster

	waVerifyToken string
	logger        *zap.Logger
}

func NewDispatcher(
	routes routeResolver,
	conversations threadStore,
	businesses businessFinder,
	tiers tierResolver,
	knowledge knowledgeLister,
	guests guestToucher,
	dedup replayChecker,
	responder ai.Responder,
	sender Sender,
	hub broadcaster,
	waVerifyToken string,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		routes:        routes,
		conversations: conversations,
		businesses:    businesses,
		tiers:         tiers,
		knowledge:     knowledge,
		guests:        guests,
		dedup:         dedup,
		responder:     responder,
		sender:        sender,
		hub:           hub,
		waVerifyToken: waVerifyToken,
		logger:        logger,
	}
}

// HandleInbound routes one normalized inbound message. The returned
// error is for the caller's logs only; webhook handlers ack 200 either
// way.
func (d *Dispatcher) HandleInbound(ctx context.Context, in *channel.Inbound) error {
	cfg, matches, err := d.routes.FindActiveByRoute(ctx, in.Kind, in.RoutingKey)
	if errors.Is(err, xerrors.ErrNotFound) {
		// Diagnostic only. Unresolved keys are a config problem on our
		// side, not the provider's; it must not see a failure.
		d.logger.Warn("unresolved routing key",
			zap.String("kind", string(in.Kind)),
			zap.String("routing_key", in.RoutingKey),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if matches > 1 {
		d.logger.Error("ambiguous routing key, using lowest config id",
			zap.String("kind", string(in.Kind)),
			zap.String("routing_key", in.RoutingKey),
			zap.Int("matches", matches),
			zap.Int64("chosen_config_id", cfg.ID),
		)
	}

	duplicate, err := d.isDuplicate(ctx, in)
	if err != nil {
		return err
	}
	if duplicate {
		d.logger.Debug("duplicate webhook delivery suppressed",
			zap.String("provider_ref", in.ProviderRef),
		)
		return nil
	}

	conv, err := d.conversations.FindOrCreateChannelThread(ctx, cfg.BusinessID, in.Kind, in.From)
	if err != nil {
		return err
	}

	userMsg := &conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleUser,
		Content:        in.Content,
	}
	if in.ProviderRef != "" {
		userMsg.ProviderRef = sql.NullString{String: in.ProviderRef, Valid: true}
	}
	if err := d.conversations.AppendMessage(ctx, userMsg); err != nil {
		return err
	}

	if d.guests != nil {
		if err := d.guests.TouchByPhone(ctx, cfg.BusinessID, in.From, in.ProfileName); err != nil {
			d.logger.Warn("guest upsert failed", zap.Error(err))
		}
	}

	if d.hub != nil {
		d.hub.BroadcastToBusiness(cfg.BusinessID, wsdomain.WSMessage{
			Channel:   wsdomain.ChannelConversations,
			Event:     wsdomain.EventNewMessage,
			Payload:   userMsg,
			Timestamp: time.Now(),
		})
	}

	d.reply(ctx, cfg, conv, in.From)
	return nil
}

// isDuplicate consults Redis first; on cache trouble it falls back to
// the store so a Redis outage degrades to slower dedup, not dropped or
// doubled messages.
func (d *Dispatcher) isDuplicate(ctx context.Context, in *channel.Inbound) (bool, error) {
	if in.ProviderRef == "" {
		return false, nil
	}

	if d.dedup != nil {
		seen, err := d.dedup.Seen(ctx, string(in.Kind), in.ProviderRef)
		if err == nil && seen {
			return true, nil
		}
		if err != nil {
			d.logger.Warn("dedup cache unavailable, falling back to store", zap.Error(err))
		}
	}

	return d.conversations.MessageExistsByProviderRef(ctx, in.ProviderRef)
}

// reply generates and sends the assistant's answer. Everything in here
// is best effort: the inbound message is already persisted.
func (d *Dispatcher) reply(ctx context.Context, cfg *channel.Config, conv *conversation.Conversation, to string) {
	if d.responder == nil {
		return
	}

	// Messaging channels are a professional feature. A degraded business
	// keeps receiving (and never loses) inbound messages, but automated
	// replies stop until it upgrades again. The effective tier already
	// accounts for an expired payment-failure grace window, which the
	// business row itself may not reflect yet.
	effective, err := d.tiers.EffectiveTier(ctx, cfg.BusinessID)
	if err != nil {
		d.logger.Warn("failed to resolve effective tier for reply", zap.Error(err))
		return
	}
	if !tier.Allows(effective, tier.AreaMultiChannel) {
		d.logger.Info("auto-reply skipped, tier below multi_channel",
			zap.Int64("business_id", cfg.BusinessID),
			zap.String("tier", string(effective)),
		)
		return
	}

	biz, err := d.businesses.FindByID(ctx, cfg.BusinessID)
	if err != nil {
		d.logger.Warn("failed to load business for reply", zap.Error(err))
		return
	}

	history, err := d.conversations.ListMessages(ctx, conv.ID)
	if err != nil {
		d.logger.Warn("failed to load reply context", zap.Error(err))
		return
	}

	var entries []*knowledge.Entry
	if d.knowledge != nil {
		entries, err = d.knowledge.ListByBusiness(ctx, biz.ID, true)
		if err != nil {
			d.logger.Warn("failed to load knowledge entries", zap.Error(err))
		}
	}

	text, err := d.responder.Reply(ctx, biz, entries, history)
	if err != nil || text == "" {
		return
	}

	reply := &conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleAssistant,
		Content:        text,
	}

	if d.sender != nil {
		ref, err := d.sender.Send(ctx, cfg, to, text)
		if err != nil {
			d.logger.Error("outbound send failed",
				zap.Error(err),
				zap.Int64("business_id", biz.ID),
				zap.String("kind", string(cfg.Kind)),
			)
		} else if ref != "" {
			reply.ProviderRef = sql.NullString{String: ref, Valid: true}
			reply.DeliveryStatus = sql.NullString{String: string(channel.DeliverySent), Valid: true}
		}
	}

	if err := d.conversations.AppendMessage(ctx, reply); err != nil {
		d.logger.Error("failed to store assistant reply", zap.Error(err))
		return
	}

	if d.hub != nil {
		d.hub.BroadcastToBusiness(biz.ID, wsdomain.WSMessage{
			Channel:   wsdomain.ChannelConversations,
			Event:     wsdomain.EventNewMessage,
			Payload:   reply,
			Timestamp: time.Now(),
		})
	}
}

// HandleDeliveryStatus applies a provider delivery callback. Correlation
// is exclusively by provider message id; an unknown id is logged and
// otherwise ignored.
func (d *Dispatcher) HandleDeliveryStatus(ctx context.Context, st *channel.StatusUpdate) error {
	if !channel.ValidDeliveryState(st.State) {
		d.logger.Warn("unrecognized delivery state",
			zap.String("state", string(st.State)),
			zap.String("provider_ref", st.ProviderRef),
		)
		return nil
	}

	delivered := st.State == channel.DeliveryDelivered
	affected, err := d.conversations.UpdateDeliveryByProviderRef(ctx, st.ProviderRef, string(st.State), delivered)
	if err != nil {
		return err
	}
	if affected == 0 {
		d.logger.Warn("delivery status for unknown message id",
			zap.String("kind", string(st.Kind)),
			zap.String("provider_ref", st.ProviderRef),
		)
	}
	return nil
}

// VerifyWhatsApp implements the Meta webhook subscription handshake:
// echo the challenge when the mode and verify token match.
func (d *Dispatcher) VerifyWhatsApp(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token != "" && token == d.waVerifyToken {
		return challenge, true
	}
	return "", false
}
