// Package webhook принимает входящие события WhatsApp Cloud API.
//
// GET подтверждает подписку на события, POST передаёт каждое текстовое
// сообщение в диалог и отправляет ответ обратно на номер отправителя.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients/whatsapp"
	"github.com/magabrotheeeer/gatepass-assistant/internal/http/response"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
)

// Conversation обрабатывает один ход диалога.
type Conversation interface {
	HandleTurn(ctx context.Context, phone, raw string, now time.Time) string
}

// Messenger отправляет ответ пользователю.
type Messenger interface {
	Send(ctx context.Context, channel, text, attachmentURL string) error
}

// Handler обработчик вебхука.
type Handler struct {
	log          *slog.Logger
	conversation Conversation
	messenger    Messenger
	verifyToken  string
	now          func() time.Time
}

// New создаёт Handler. verifyToken сравнивается с hub.verify_token при подписке.
func New(log *slog.Logger, conversation Conversation, messenger Messenger, verifyToken string) *Handler {
	return &Handler{
		log:          log,
		conversation: conversation,
		messenger:    messenger,
		verifyToken:  verifyToken,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Verify godoc
// @Summary Подтверждение подписки вебхука
// @Tags Webhook
// @Produce plain
// @Param hub.mode query string true "subscribe"
// @Param hub.verify_token query string true "Токен подтверждения"
// @Param hub.challenge query string true "Строка, возвращаемая при успехе"
// @Success 200 {string} string
// @Failure 403 {object} response.ErrorResponse
// @Router /webhook [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.Verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.verifyToken == "" || q.Get("hub.verify_token") != h.verifyToken {
		log.Warn("webhook verification rejected", slog.String("mode", q.Get("hub.mode")))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("verification failed"))
		return
	}

	log.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(q.Get("hub.challenge"))); err != nil {
		log.Error("failed to write challenge", sl.Err(err))
	}
}

// Receive godoc
// @Summary Входящие сообщения WhatsApp
// @Tags Webhook
// @Accept json
// @Produce json
// @Param request body whatsapp.WebhookPayload true "Событие WhatsApp Cloud API"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Router /webhook [post]
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.Receive"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	messages := payload.TextMessages()
	for _, m := range messages {
		reply := h.conversation.HandleTurn(r.Context(), m.From, m.Text, h.now())
		if reply == "" {
			continue
		}
		if err := h.messenger.Send(r.Context(), m.From, reply, ""); err != nil {
			log.Error("failed to send reply", slog.String("phone", m.From), sl.Err(err))
		}
	}

	log.Info("webhook processed", slog.Int("messages", len(messages)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"processed": len(messages),
	}))
}
