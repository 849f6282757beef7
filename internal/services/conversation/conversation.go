// Package conversation ведёт диалог с номером телефона через меню и состояния сессии.
//
// Каждый входящий текст обрабатывается как один ход: сессия загружается, текст
// нормализуется, выполняется переход, сессия сохраняется. Любая ошибка или паника
// хода сбрасывает сессию в главное меню и возвращает извинение с контактом поддержки.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/metrics"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/issuance"
)

// SessionRepository хранилище сессий.
type SessionRepository interface {
	GetSession(ctx context.Context, phone string) (*models.Session, bool, error)
	SaveSession(ctx context.Context, sess models.Session) error
}

// Directory находит учеников, привязанных к номеру.
type Directory interface {
	ListContactsByChannel(ctx context.Context, channel string) ([]models.Contact, error)
}

// Accounts источник начислений и платежей.
type Accounts interface {
	Account(ctx context.Context, subjectID, term string) (models.Account, error)
}

// Issuer выдаёт пропуска.
type Issuer interface {
	Issue(ctx context.Context, req issuance.Request) (issuance.Result, error)
}

// Assistant отвечает на свободные вопросы незарегистрированных номеров.
type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Calendar календарь четвертей.
type Calendar interface {
	Lookup(code string) (models.Term, error)
	TermForDate(d time.Time) (string, bool)
	NextUpcoming(d time.Time) (string, bool)
}

// Options параметры диалога.
type Options struct {
	SupportContact string
	DailyLimit     int
	// FallbackTerm используется, когда дата не попадает ни в одну четверть.
	FallbackTerm string
}

// Deps зависимости Service.
type Deps struct {
	Sessions  SessionRepository
	Directory Directory
	Accounts  Accounts
	Issuer    Issuer
	Assistant Assistant
	Calendar  Calendar
}

// Service обрабатывает ходы диалога.
type Service struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

// NewService создаёт Service.
func NewService(deps Deps, opts Options, log *slog.Logger) *Service {
	return &Service{deps: deps, opts: opts, log: log}
}

// turn состояние одного хода.
type turn struct {
	sess     *models.Session
	contacts []models.Contact
	phone    string
	raw      string
	text     string
	first    bool
	now      time.Time
	log      *slog.Logger
}

func normalize(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// HandleTurn обрабатывает входящее сообщение и возвращает текст ответа.
func (s *Service) HandleTurn(ctx context.Context, phone, raw string, now time.Time) (reply string) {
	const op = "conversation.HandleTurn"
	log := s.log.With(slog.String("op", op), slog.String("phone", phone))

	t := &turn{
		sess:  &models.Session{PhoneNumber: phone, State: models.StateMainMenu},
		phone: phone,
		raw:   strings.TrimSpace(raw),
		text:  normalize(raw),
		now:   now,
		log:   log,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during conversation turn", slog.Any("panic", r))
			reply = s.fault(ctx, t)
		}
	}()

	reply, err := s.handle(ctx, t)
	if err != nil {
		log.Error("conversation turn failed", sl.Err(err))
		return s.fault(ctx, t)
	}
	return reply
}

func (s *Service) fault(ctx context.Context, t *turn) string {
	metrics.ConversationFaults.Inc()
	t.sess.State = models.StateMainMenu
	t.sess.PendingKind = ""
	t.sess.LastUpdated = t.now
	if err := s.deps.Sessions.SaveSession(context.WithoutCancel(ctx), *t.sess); err != nil {
		t.log.Error("failed to reset session after fault", sl.Err(err))
	}
	return s.apology()
}

func (s *Service) handle(ctx context.Context, t *turn) (string, error) {
	const op = "conversation.handle"

	stored, found, err := s.deps.Sessions.GetSession(ctx, t.phone)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if found {
		t.sess = stored
	}
	t.first = !found
	if !t.sess.State.Valid() {
		t.log.Warn("corrupt session state, resetting", slog.String("state", string(t.sess.State)))
		t.sess.State = models.StateMainMenu
		t.sess.PendingKind = ""
	}

	t.contacts, err = s.deps.Directory.ListContactsByChannel(ctx, t.phone)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	t.sess.BoundSubjectIDs = subjectIDs(t.contacts)
	metrics.ConversationTurns.WithLabelValues(string(t.sess.State)).Inc()

	var reply string
	if len(t.contacts) == 0 {
		reply = s.unregistered(ctx, t)
	} else {
		reply, err = s.registered(ctx, t)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	t.sess.LastUpdated = t.now
	if err := s.deps.Sessions.SaveSession(ctx, *t.sess); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return truncate(reply), nil
}

func subjectIDs(contacts []models.Contact) []string {
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.SubjectID)
	}
	return ids
}

func (s *Service) unregistered(ctx context.Context, t *turn) string {
	sess := t.sess
	sess.State = models.StateUnregistered
	sess.PendingKind = ""
	today := datetime.Day(t.now)
	if !sess.QueryDate.Equal(today) {
		sess.QueryCount = 0
		sess.QueryDate = today
	}

	if t.first {
		return s.unregisteredWelcome()
	}
	switch t.text {
	case "menu", "start", "hi", "hello":
		return s.unregisteredWelcome()
	case "5", "help":
		return s.unregisteredHelp()
	}

	question, ok := cannedQuestions[t.text]
	if !ok {
		question = t.raw
	}
	if sess.QueryCount >= s.opts.DailyLimit {
		t.log.Info("unregistered daily limit reached", slog.Int("count", sess.QueryCount))
		return s.limitReached()
	}
	sess.QueryCount++

	if s.deps.Assistant == nil {
		return s.assistantUnavailable()
	}
	answer, err := s.deps.Assistant.Ask(ctx, question)
	if err != nil {
		t.log.Warn("assistant failed", sl.Err(err))
		return s.assistantUnavailable()
	}
	return answer
}

func (s *Service) registered(ctx context.Context, t *turn) (string, error) {
	sess := t.sess
	if sess.State == models.StateUnregistered || sess.State == models.StateReminderSent {
		sess.State = models.StateMainMenu
	}

	if t.first {
		return withMenu(fmt.Sprintf("👋 *Welcome to Shining Smiles School!*\nThis number is linked to %s.", names(t.contacts))), nil
	}

	switch t.text {
	case "menu", "start", "hi", "hello", "cancel", "back":
		sess.State = models.StateMainMenu
		sess.PendingKind = ""
		return withMenu("Hello! What can I help you with today?"), nil
	case "help":
		sess.State = models.StateMainMenu
		sess.PendingKind = ""
		return s.help(), nil
	}

	switch sess.State {
	case models.StateAwaitingTermForBalance,
		models.StateAwaitingTermForStatement,
		models.StateAwaitingTermForEntitlement:
		return s.awaitingTerm(ctx, t)
	default:
		return s.mainMenu(ctx, t)
	}
}

func names(contacts []models.Contact) string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, displayName(c))
	}
	return strings.Join(out, ", ")
}

func displayName(c models.Contact) string {
	if n := c.FullName(); n != "" {
		return fmt.Sprintf("*%s* (%s)", n, c.SubjectID)
	}
	return "*" + c.SubjectID + "*"
}

func (s *Service) mainMenu(ctx context.Context, t *turn) (string, error) {
	switch text := t.text; {
	case text == "1" || text == "balance" || text == "view balance":
		return s.balance(ctx, t, "")
	case text == "2" || text == "statement" || text == "request statement":
		return s.statement(ctx, t, "")
	case strings.HasPrefix(text, "statement "):
		code := strings.TrimSpace(strings.TrimPrefix(text, "statement "))
		if reply, ok := s.checkTerm(t, code, models.StateMainMenu); !ok {
			return reply, nil
		}
		return s.statement(ctx, t, code)
	case text == "3" || text == "gate pass" || text == "gatepass" || text == "gate" || text == "get gate pass":
		return s.entitlement(ctx, t, models.KindGatePass, "")
	case text == "4" || text == "transport pass" || text == "transport" || text == "get transport pass":
		return s.entitlement(ctx, t, models.KindTransportPass, "")
	default:
		return withMenu("Sorry, I didn't understand that."), nil
	}
}

func (s *Service) awaitingTerm(ctx context.Context, t *turn) (string, error) {
	state := t.sess.State
	reply, ok := s.checkTerm(t, t.text, state)
	if !ok {
		return reply, nil
	}

	switch state {
	case models.StateAwaitingTermForBalance:
		return s.balance(ctx, t, t.text)
	case models.StateAwaitingTermForStatement:
		return s.statement(ctx, t, t.text)
	default:
		kind := models.EntitlementKind(t.sess.PendingKind)
		if !kind.Valid() {
			kind = models.KindGatePass
		}
		return s.entitlement(ctx, t, kind, t.text)
	}
}

// resolveTerm возвращает текущую четверть либо настроенную запасную.
func (s *Service) resolveTerm(now time.Time) (string, bool) {
	if code, ok := s.deps.Calendar.TermForDate(now); ok {
		return code, true
	}
	if s.opts.FallbackTerm != "" {
		if _, err := s.deps.Calendar.Lookup(s.opts.FallbackTerm); err == nil {
			return s.opts.FallbackTerm, true
		}
	}
	return "", false
}

func finish(t *turn, reply string) (string, error) {
	t.sess.State = models.StateMainMenu
	t.sess.PendingKind = ""
	return reply, nil
}
