// Package reminder рассылает напоминания о задолженности по расписанию.
//
// Напоминания не отправляются напрямую: они публикуются в очередь, а сессия
// номера переводится в состояние ReminderSent.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/backoff"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/metrics"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// Calendar календарь четвертей.
type Calendar interface {
	Lookup(code string) (models.Term, error)
	TermForDate(d time.Time) (string, bool)
	WeeksRemaining(code string, d time.Time) (int, error)
	WeeksElapsed(code string, d time.Time) (int, error)
}

// ContactRepository источник должников.
type ContactRepository interface {
	ListContactsWithBalance(ctx context.Context, limit, offset int) ([]models.Contact, error)
}

// SessionRepository хранилище сессий.
type SessionRepository interface {
	GetSession(ctx context.Context, phone string) (*models.Session, bool, error)
	SaveSession(ctx context.Context, sess models.Session) error
}

// Publisher очередь напоминаний.
type Publisher interface {
	PublishReminder(ctx context.Context, msg models.ReminderMessage) error
}

// Options параметры рассылки.
type Options struct {
	BatchSize  int
	BatchPause time.Duration
}

// Stats итог прогона.
type Stats struct {
	Checked   int
	Published int
	Skipped   int
	Failed    int
}

// Service рассылает напоминания.
type Service struct {
	calendar  Calendar
	contacts  ContactRepository
	sessions  SessionRepository
	publisher Publisher
	sleeper   backoff.Sleeper
	opts      Options
	log       *slog.Logger
}

// NewService создаёт Service.
func NewService(calendar Calendar, contacts ContactRepository, sessions SessionRepository, publisher Publisher, sleeper backoff.Sleeper, opts Options, log *slog.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	return &Service{
		calendar:  calendar,
		contacts:  contacts,
		sessions:  sessions,
		publisher: publisher,
		sleeper:   sleeper,
		opts:      opts,
		log:       log,
	}
}

// Run проходит должников пачками и ставит напоминания в очередь.
// Вне четверти ничего не делает.
func (s *Service) Run(ctx context.Context, now time.Time) (Stats, error) {
	const op = "reminder.Run"
	log := s.log.With(slog.String("op", op))

	var stats Stats
	code, ok := s.calendar.TermForDate(now)
	if !ok {
		log.Info("no active term, reminders skipped")
		return stats, nil
	}
	t, err := s.calendar.Lookup(code)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}
	weeksLeft, err := s.calendar.WeeksRemaining(code, now)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}
	weeksElapsed, err := s.calendar.WeeksElapsed(code, now)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}
	if _, ok := IntervalDays(weeksElapsed, weeksLeft); !ok {
		log.Info("too early in term for reminders", slog.String("term", code), slog.Int("weeks_elapsed", weeksElapsed))
		return stats, nil
	}
	tone := ToneFor(weeksLeft)

	// номера, уже получившие напоминание в этом прогоне, получают и остальные
	sentNow := map[string]bool{}
	for offset := 0; ; offset += s.opts.BatchSize {
		batch, err := s.contacts.ListContactsWithBalance(ctx, s.opts.BatchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}

		for _, c := range batch {
			stats.Checked++
			sent, err := s.remind(ctx, c, t, tone, weeksElapsed, weeksLeft, now, sentNow)
			switch {
			case err != nil:
				stats.Failed++
				log.Error("reminder failed", slog.String("subject_id", c.SubjectID), sl.Err(err))
			case sent:
				stats.Published++
			default:
				stats.Skipped++
			}
		}

		if len(batch) < s.opts.BatchSize {
			break
		}
		if err := s.sleeper.Sleep(ctx, s.opts.BatchPause); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("reminder run finished",
		slog.String("term", code),
		slog.String("tone", string(tone)),
		slog.Int("checked", stats.Checked),
		slog.Int("published", stats.Published),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (s *Service) remind(ctx context.Context, c models.Contact, t models.Term, tone Tone, weeksElapsed, weeksLeft int, now time.Time, sentNow map[string]bool) (bool, error) {
	channel := c.PreferredChannel
	if channel == "" || c.OutstandingBalance <= 0 {
		return false, nil
	}

	sess, found, err := s.sessions.GetSession(ctx, channel)
	if err != nil {
		return false, err
	}
	if !found {
		sess = &models.Session{PhoneNumber: channel, State: models.StateMainMenu}
	}
	if !sentNow[channel] && !ShouldSend(sess.LastReminderAt, weeksElapsed, weeksLeft, now) {
		return false, nil
	}

	msg := models.ReminderMessage{
		SubjectID: c.SubjectID,
		Channel:   channel,
		Term:      t.Code,
		Tone:      string(tone),
		Text:      Message(c, t, tone),
	}
	if err := s.publisher.PublishReminder(ctx, msg); err != nil {
		return false, err
	}
	metrics.RemindersPublished.WithLabelValues(string(tone)).Inc()
	sentNow[channel] = true

	sent := now.UTC()
	sess.State = models.StateReminderSent
	sess.PendingKind = ""
	sess.ReminderCount++
	sess.LastReminderAt = &sent
	sess.LastUpdated = sent
	if err := s.sessions.SaveSession(ctx, *sess); err != nil {
		return true, fmt.Errorf("reminder published but session not saved: %w", err)
	}
	return true, nil
}

// Message текст напоминания.
func Message(c models.Contact, t models.Term, tone Tone) string {
	name := c.FullName()
	due := t.End.Format("January 02, 2006")
	switch tone {
	case ToneGentle:
		return fmt.Sprintf("Hi, this is a friendly reminder that %s (%s) has an outstanding balance of $%.2f for Term %s. "+
			"We'd appreciate settlement by %s. Thank you!", name, c.SubjectID, c.OutstandingBalance, t.Code, due)
	case ToneFirm:
		return fmt.Sprintf("Dear parent/guardian, %s (%s) still has an outstanding balance of $%.2f for Term %s. "+
			"Please make payment by %s to avoid end-of-term disruptions.", name, c.SubjectID, c.OutstandingBalance, t.Code, due)
	default:
		return fmt.Sprintf("URGENT: a balance of $%.2f is still unpaid for %s (%s), Term %s. "+
			"Failure to clear it by %s may affect access to school services.", c.OutstandingBalance, name, c.SubjectID, t.Code, due)
	}
}
