package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Sender delivers one message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// WhatsAppGateway talks to the hosted WhatsApp relay over HTTP.
type WhatsAppGateway struct {
	client *resty.Client
}

func NewWhatsAppGateway(baseURL, token string) *WhatsAppGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &WhatsAppGateway{client: client}
}

type sendMessageRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text string `json:"text"`
}

func (g *WhatsAppGateway) Send(ctx context.Context, phone, message string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{To: phone, Type: "text", Text: message}).
		Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("whatsapp gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp gateway: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
