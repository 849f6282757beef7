// Package assistant клиент ИИ-ассистента, отвечающего незарегистрированным номерам.
//
// База знаний читается один раз при создании клиента и дальше не меняется.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
)

// ErrEmptyAnswer ассистент вернул пустой ответ.
var ErrEmptyAnswer = errors.New("assistant returned no answer")

const systemPrompt = "You are the school's WhatsApp assistant. Answer briefly using only the facts below. " +
	"If the facts do not cover the question, say so and suggest contacting the school office.\n\n"

// Client HTTP-клиент chat completions API.
type Client struct {
	client    *resty.Client
	model     string
	knowledge string
}

// New создаёт клиент с уже загруженной базой знаний.
func New(cfg config.Assistant, knowledge string) *Client {
	c := resty.New().
		SetBaseURL(cfg.AssistantBaseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.AssistantAPIKey).
		SetTimeout(cfg.AssistantTimeout)
	return &Client{client: c, model: cfg.Model, knowledge: knowledge}
}

// LoadKnowledge читает файл базы знаний. Пустой путь даёт пустую базу.
func LoadKnowledge(path string) (string, error) {
	const op = "assistant.LoadKnowledge"
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strings.TrimSpace(string(b)), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Ask задаёт вопрос ассистенту.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	const op = "assistant.Ask"
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt + c.knowledge},
			{Role: "user", Content: question},
		},
	}

	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := clients.CheckStatus(resp, op); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyAnswer)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
