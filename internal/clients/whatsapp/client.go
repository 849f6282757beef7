// Package whatsapp клиент WhatsApp Cloud API: отправка сообщений и проверка номеров.
package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
)

// Client HTTP-клиент WhatsApp Cloud API.
type Client struct {
	client        *resty.Client
	phoneNumberID string
}

// New создаёт клиент по настройкам WhatsApp.
func New(cfg config.WhatsApp) *Client {
	c := resty.New().
		SetBaseURL(cfg.WhatsAppBaseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.AccessToken).
		SetTimeout(cfg.WhatsAppTimeout)
	return &Client{client: c, phoneNumberID: cfg.PhoneNumberID}
}

type textBody struct {
	Body string `json:"body"`
}

type documentBody struct {
	Link     string `json:"link"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type outgoingMessage struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Document         *documentBody `json:"document,omitempty"`
}

type contactsRequest struct {
	Blocking   string   `json:"blocking"`
	Contacts   []string `json:"contacts"`
	ForceCheck bool     `json:"force_check"`
}

type contactsResponse struct {
	Contacts []struct {
		Input  string `json:"input"`
		Status string `json:"status"`
		WaID   string `json:"wa_id"`
	} `json:"contacts"`
}

// Send отправляет текст на номер channel. С attachmentURL уходит документ с подписью text.
func (c *Client) Send(ctx context.Context, channel, text, attachmentURL string) error {
	const op = "whatsapp.Send"
	msg := outgoingMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(channel, "+"),
	}
	if attachmentURL != "" {
		msg.Type = "document"
		msg.Document = &documentBody{Link: attachmentURL, Caption: text, Filename: "pass.txt"}
	} else {
		msg.Type = "text"
		msg.Text = &textBody{Body: text}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("phone", c.phoneNumberID).
		SetBody(&msg).
		Post("/{phone}/messages")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return clients.CheckStatus(resp, op)
}

// IsReachable проверяет, зарегистрирован ли номер в WhatsApp.
func (c *Client) IsReachable(ctx context.Context, channel string) (bool, error) {
	const op = "whatsapp.IsReachable"
	var out contactsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("phone", c.phoneNumberID).
		SetBody(&contactsRequest{Blocking: "wait", Contacts: []string{channel}, ForceCheck: true}).
		SetResult(&out).
		Post("/{phone}/contacts")
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := clients.CheckStatus(resp, op); err != nil {
		return false, err
	}
	for _, ct := range out.Contacts {
		if ct.Status == "valid" {
			return true, nil
		}
	}
	return false, nil
}
