// Package sender доставляет напоминания из очереди в WhatsApp.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/backoff"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/metrics"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/phone"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// Messenger канал доставки сообщений.
type Messenger interface {
	Send(ctx context.Context, channel, text, attachmentURL string) error
}

// SenderService отправляет напоминания с повторами при ограничении частоты.
type SenderService struct {
	messenger Messenger
	retrier   *backoff.Retrier
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(messenger Messenger, retrier *backoff.Retrier, log *slog.Logger) *SenderService {
	return &SenderService{
		messenger: messenger,
		retrier:   retrier,
		log:       log,
	}
}

// Handler возвращает обработчик сообщений очереди, привязанный к ctx.
func (s *SenderService) Handler(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		return s.SendReminder(ctx, body)
	}
}

// SendReminder отправляет одно напоминание.
//
// Ошибка возвращается только если повторы при ограничении частоты исчерпаны,
// тогда сообщение возвращается в очередь. Некорректные сообщения и
// постоянные ошибки доставки логируются и отбрасываются.
func (s *SenderService) SendReminder(ctx context.Context, body []byte) error {
	const op = "sender.SendReminder"
	log := s.log.With(slog.String("op", op))

	var msg models.ReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to unmarshal reminder", sl.Err(err))
		metrics.RemindersDelivered.WithLabelValues("malformed").Inc()
		return nil
	}
	log = log.With(slog.String("subject_id", msg.SubjectID), slog.String("tone", msg.Tone))
	if !phone.Valid(msg.Channel) || msg.Text == "" {
		log.Error("reminder has no deliverable channel or text", slog.String("channel", msg.Channel))
		metrics.RemindersDelivered.WithLabelValues("malformed").Inc()
		return nil
	}

	err := s.retrier.Do(ctx,
		func() error { return s.messenger.Send(ctx, msg.Channel, msg.Text, "") },
		func(err error) bool { return errors.Is(err, clients.ErrRateLimited) },
		func(err error, wait time.Duration) {
			log.Warn("reminder delivery throttled, retrying", slog.Duration("wait", wait), sl.Err(err))
		},
	)
	switch {
	case err == nil:
		metrics.RemindersDelivered.WithLabelValues("sent").Inc()
		log.Info("reminder sent")
		return nil
	case errors.Is(err, clients.ErrRateLimited):
		metrics.RemindersDelivered.WithLabelValues("requeued").Inc()
		return fmt.Errorf("%s: %w", op, err)
	default:
		metrics.RemindersDelivered.WithLabelValues("failed").Inc()
		log.Error("reminder delivery failed", sl.Err(err))
		return nil
	}
}
