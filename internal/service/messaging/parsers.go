// internal/service/messaging/parsers.go
package messaging

import (
	"encoding/json"
	"fmt"
	"net/url"

	"concierge-service/internal/domain/channel"
)

// ParseSMSInbound normalizes a Twilio-style form-encoded inbound SMS.
// The destination number is the routing key.
func ParseSMSInbound(form url.Values) (*channel.Inbound, error) {
	to := form.Get("To")
	from := form.Get("From")
	if to == "" || from == "" {
		return nil, fmt.Errorf("sms webhook missing To/From")
	}

	return &channel.Inbound{
		Kind:        channel.KindSMS,
		RoutingKey:  to,
		From:        from,
		Content:     form.Get("Body"),
		ProviderRef: form.Get("MessageSid"),
	}, nil
}

// ParseSMSStatus normalizes a form-encoded delivery-status callback.
func ParseSMSStatus(form url.Values) (*channel.StatusUpdate, error) {
	ref := form.Get("MessageSid")
	if ref == "" {
		return nil, fmt.Errorf("sms status callback missing MessageSid")
	}

	return &channel.StatusUpdate{
		Kind:        channel.KindSMS,
		ProviderRef: ref,
		State:       channel.DeliveryState(form.Get("MessageStatus")),
	}, nil
}

// Meta webhook envelope. Only the fields the dispatcher reads are
// declared; everything else passes through unmarshalling untouched.
type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					ID   string `json:"id"`
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWhatsAppWebhook flattens a Meta webhook delivery into normalized
// inbound messages and status updates. One delivery can carry several of
// each across entries.
func ParseWhatsAppWebhook(body []byte) ([]*channel.Inbound, []*channel.StatusUpdate, error) {
	var payload whatsAppPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to parse whatsapp payload: %w", err)
	}

	var inbound []*channel.Inbound
	var statuses []*channel.StatusUpdate

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			routingKey := value.Metadata.PhoneNumberID

			profileNames := make(map[string]string, len(value.Contacts))
			for _, c := range value.Contacts {
				profileNames[c.WaID] = c.Profile.Name
			}

			for _, m := range value.Messages {
				if m.Type != "" && m.Type != "text" {
					// Media and interactive messages are out of scope;
					// they still get acked upstream.
					continue
				}
				inbound = append(inbound, &channel.Inbound{
					Kind:        channel.KindWhatsApp,
					RoutingKey:  routingKey,
					From:        m.From,
					Content:     m.Text.Body,
					ProviderRef: m.ID,
					ProfileName: profileNames[m.From],
				})
			}

			for _, st := range value.Statuses {
				statuses = append(statuses, &channel.StatusUpdate{
					Kind:        channel.KindWhatsApp,
					ProviderRef: st.ID,
					State:       channel.DeliveryState(st.Status),
				})
			}
		}
	}

	return inbound, statuses, nil
}
