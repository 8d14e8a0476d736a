// internal/handlers/webhook/webhook_handler.go
package webhook

import (
	"io"
	"net/http"

	"concierge-service/internal/service/messaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler terminates provider callbacks. Every POST endpoint
// returns 200 no matter what happened inside: a non-2xx would make the
// provider retry-storm us over our own bugs or outages.
type WebhookHandler struct {
	dispatcher *messaging.Dispatcher
	logger     *zap.Logger
}

func NewWebhookHandler(dispatcher *messaging.Dispatcher, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, logger: logger}
}

// SMSInbound handles a form-encoded inbound SMS.
func (h *WebhookHandler) SMSInbound(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Warn("unparseable sms webhook", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	in, err := messaging.ParseSMSInbound(c.Request.PostForm)
	if err != nil {
		h.logger.Warn("malformed sms webhook", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	if err := h.dispatcher.HandleInbound(c.Request.Context(), in); err != nil {
		h.logger.Error("sms inbound processing failed", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SMSStatus handles a form-encoded delivery-status callback.
func (h *WebhookHandler) SMSStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Warn("unparseable sms status callback", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	st, err := messaging.ParseSMSStatus(c.Request.PostForm)
	if err != nil {
		h.logger.Warn("malformed sms status callback", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	if err := h.dispatcher.HandleDeliveryStatus(c.Request.Context(), st); err != nil {
		h.logger.Error("sms status processing failed", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// WhatsAppInbound handles a Meta webhook delivery, which can batch
// several messages and status updates.
func (h *WebhookHandler) WhatsAppInbound(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("unreadable whatsapp webhook", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	inbound, statuses, err := messaging.ParseWhatsAppWebhook(body)
	if err != nil {
		h.logger.Warn("malformed whatsapp webhook", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	for _, in := range inbound {
		if err := h.dispatcher.HandleInbound(c.Request.Context(), in); err != nil {
			h.logger.Error("whatsapp inbound processing failed", zap.Error(err))
		}
	}
	for _, st := range statuses {
		if err := h.dispatcher.HandleDeliveryStatus(c.Request.Context(), st); err != nil {
			h.logger.Error("whatsapp status processing failed", zap.Error(err))
		}
	}
	c.Status(http.StatusOK)
}

// WhatsAppVerify answers the Meta subscription handshake.
func (h *WebhookHandler) WhatsAppVerify(c *gin.Context) {
	challenge, ok := h.dispatcher.VerifyWhatsApp(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if !ok {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}
