// internal/service/messaging/sender.go
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge-service/internal/domain/channel"

	"go.uber.org/zap"
)

// Sender delivers outbound replies through the provider behind a channel
// config. Implementations return the provider message id so delivery
// callbacks can be correlated later.
type Sender interface {
	Send(ctx context.Context, cfg *channel.Config, to, body string) (providerRef string, err error)
}

// ProviderSender talks to the SMS gateway and the WhatsApp Cloud API
// over HTTP. Credentials come from process config, never from channel
// settings rows.
type ProviderSender struct {
	httpClient *http.Client

	smsAPIURL     string
	smsAccountSID string
	smsAuthToken  string

	waAPIURL      string
	waAccessToken string

	logger *zap.Logger
}

type ProviderConfig struct {
	SMSAPIURL     string
	SMSAccountSID string
	SMSAuthToken  string
	WAAPIURL      string
	WAAccessToken string
}

func NewProviderSender(cfg ProviderConfig, logger *zap.Logger) *ProviderSender {
	return &ProviderSender{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		smsAPIURL:     cfg.SMSAPIURL,
		smsAccountSID: cfg.SMSAccountSID,
		smsAuthToken:  cfg.SMSAuthToken,
		waAPIURL:      cfg.WAAPIURL,
		waAccessToken: cfg.WAAccessToken,
		logger:        logger,
	}
}

func (p *ProviderSender) Send(ctx context.Context, cfg *channel.Config, to, body string) (string, error) {
	switch cfg.Kind {
	case channel.KindSMS:
		return p.sendSMS(ctx, cfg.RoutingKey, to, body)
	case channel.KindWhatsApp:
		return p.sendWhatsApp(ctx, cfg.RoutingKey, to, body)
	}
	return "", fmt.Errorf("unsupported channel kind %q", cfg.Kind)
}

// sendSMS posts a Twilio-style Messages request; From is the business's
// provisioned number (the routing key).
func (p *ProviderSender) sendSMS(ctx context.Context, from, to, body string) (string, error) {
	if p.smsAPIURL == "" {
		return "", fmt.Errorf("sms provider not configured")
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.smsAPIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.smsAccountSID, p.smsAuthToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("sms provider returned %d", resp.StatusCode)
	}

	var out struct {
		Sid string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode sms response: %w", err)
	}
	return out.Sid, nil
}

// sendWhatsApp posts to the Cloud API messages endpoint for the
// business's phone-number-id (the routing key).
func (p *ProviderSender) sendWhatsApp(ctx context.Context, phoneNumberID, to, body string) (string, error) {
	if p.waAPIURL == "" {
		return "", fmt.Errorf("whatsapp provider not configured")
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", strings.TrimRight(p.waAPIURL, "/"), phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.waAccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("whatsapp provider returned %d", resp.StatusCode)
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode whatsapp response: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}
