// Package issuance решает, выдать новый пропуск, переотправить действующий или отказать.
//
// Порядок шагов фиксирован: проверка входа, контакт, канал, доступность канала,
// недельный лимит, процент оплаты, срок действия, повторное использование или выдача.
// Новый пропуск сохраняется до попытки доставки; сбой доставки заменяется текстовой
// сводкой и не считается ошибкой запроса.
package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/metrics"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/phone"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/ratelimit"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
)

// Outcome исход запроса пропуска.
type Outcome string

const (
	OutcomeIssued                 Outcome = "issued"
	OutcomeIssuedTextOnlyFallback Outcome = "issued_text_only_fallback"
	OutcomeReusedSent             Outcome = "reused_sent"
	OutcomeReusedTextOnly         Outcome = "reused_text_only"
	OutcomeBelowThreshold         Outcome = "below_threshold"
	OutcomeRateLimited            Outcome = "rate_limited"
)

// Request запрос пропуска.
type Request struct {
	Kind          models.EntitlementKind
	SubjectID     string
	Term          string
	PaymentAmount float64
	TotalDue      float64
	// Channel явный канал доставки, пустой означает предпочтительный канал контакта.
	Channel string
	Now     time.Time
}

// Result итог запроса. Entitlement заполнен для выдачи и повторного использования.
type Result struct {
	Outcome           Outcome
	Entitlement       *models.Entitlement
	Channel           string
	PaymentPercentage float64
	Tier              ratelimit.Tier
	RequestCount      int
	HolderName        string
}

// ContactResolver находит контакт ученика, при необходимости запрашивая внешний источник.
type ContactResolver interface {
	Resolve(ctx context.Context, subjectID string, now time.Time) (models.Contact, error)
}

// ChannelVerifier проверяет доступность номера в мессенджере.
type ChannelVerifier interface {
	IsReachable(ctx context.Context, channel string) (bool, error)
}

// RateLimiter недельный лимит запросов.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, subjectID string, now time.Time) (int, ratelimit.Tier, error)
}

// ExpiryPolicy вычисляет срок действия пропуска.
type ExpiryPolicy interface {
	ComputeExpiry(termCode string, percentage float64, now time.Time) (time.Time, bool, error)
	ComputeTransportExpiry(termCode string, percentage float64, now time.Time) (time.Time, bool, error)
}

// Repository хранилище пропусков.
type Repository interface {
	CreateEntitlement(ctx context.Context, e models.Entitlement) error
	LatestValidEntitlement(ctx context.Context, kind models.EntitlementKind, subjectID, term string, day time.Time) (*models.Entitlement, bool, error)
	SetArtifactRef(ctx context.Context, id uuid.UUID, ref string) error
}

// Artifacts формирует документы пропусков.
type Artifacts interface {
	RenderAndStore(ctx context.Context, e models.Entitlement, holder models.Contact) (string, error)
	RetrievableURL(ref string, ttl time.Duration) (string, error)
}

// Sender отправляет сообщения в мессенджер.
type Sender interface {
	Send(ctx context.Context, channel, text, attachmentURL string) error
}

// Locker сериализует запросы одного ученика.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Deps зависимости Service.
type Deps struct {
	Contacts  ContactResolver
	Verifier  ChannelVerifier
	Limiter   RateLimiter
	Expiry    ExpiryPolicy
	Repo      Repository
	Artifacts Artifacts
	Sender    Sender
	Locker    Locker
}

// Options параметры Service.
type Options struct {
	SubjectIDPattern *regexp.Regexp
	LockTTL          time.Duration
	URLTTL           time.Duration
}

// Service выдаёт пропуска.
type Service struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

// NewService создаёт Service.
func NewService(deps Deps, opts Options, log *slog.Logger) *Service {
	return &Service{deps: deps, opts: opts, log: log}
}

func (s *Service) validate(req Request) error {
	if !req.Kind.Valid() {
		return models.NewValidationError("kind", fmt.Sprintf("unknown pass kind %q", req.Kind))
	}
	if req.SubjectID == "" || (s.opts.SubjectIDPattern != nil && !s.opts.SubjectIDPattern.MatchString(req.SubjectID)) {
		return models.NewValidationError("subject_id", fmt.Sprintf("%q is not a valid student id", req.SubjectID))
	}
	if !term.ValidCode(req.Term) {
		return models.NewValidationError("term", fmt.Sprintf("%q is not a term code like 2026-1", req.Term))
	}
	if req.TotalDue <= 0 {
		return models.NewValidationError("total_due", "must be greater than zero")
	}
	if req.PaymentAmount < 0 {
		return models.NewValidationError("payment_amount", "must not be negative")
	}
	return nil
}

// Issue обрабатывает запрос пропуска.
func (s *Service) Issue(ctx context.Context, req Request) (Result, error) {
	const op = "issuance.Issue"
	log := s.log.With(
		slog.String("op", op),
		slog.String("kind", string(req.Kind)),
		slog.String("subject_id", req.SubjectID),
		slog.String("term", req.Term),
	)

	if err := s.validate(req); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	unlock, err := s.deps.Locker.Lock(ctx, "issue:"+req.SubjectID, s.opts.LockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	contact, err := s.deps.Contacts.Resolve(ctx, req.SubjectID, req.Now)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	channel := req.Channel
	if channel == "" {
		channel = contact.PreferredChannel
	}
	if channel == "" {
		return Result{}, fmt.Errorf("%s: %w", op, models.NewValidationError("channel", "no delivery channel on record"))
	}
	if !phone.Valid(channel) {
		return Result{}, fmt.Errorf("%s: %w", op, models.NewValidationError("channel", "must be + followed by 10-15 digits"))
	}

	reachable, err := s.deps.Verifier.IsReachable(ctx, channel)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !reachable {
		return Result{}, fmt.Errorf("%s: %s: %w", op, channel, models.ErrChannelUnverified)
	}

	count, tier, err := s.deps.Limiter.CheckAndIncrement(ctx, req.SubjectID, req.Now)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res := Result{
		Channel:      channel,
		Tier:         tier,
		RequestCount: count,
		HolderName:   contact.FullName(),
	}
	if tier == ratelimit.TierBlocked {
		log.Info("request blocked by weekly limit", slog.Int("count_before", count))
		return s.finish(req.Kind, res, OutcomeRateLimited), nil
	}

	res.PaymentPercentage = req.PaymentAmount * 100 / req.TotalDue

	expiryAt, ok, err := s.computeExpiry(req, res.PaymentPercentage)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		log.Info("payment below threshold", slog.Float64("percentage", res.PaymentPercentage))
		return s.finish(req.Kind, res, OutcomeBelowThreshold), nil
	}

	existing, found, err := s.deps.Repo.LatestValidEntitlement(ctx, req.Kind, req.SubjectID, req.Term, datetime.Day(req.Now))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if found && existing.PaymentPercentage >= res.PaymentPercentage {
		res.Entitlement = existing
		if tier == ratelimit.TierDegraded {
			s.sendText(ctx, *existing, contact, channel, log)
			return s.finish(req.Kind, res, OutcomeReusedTextOnly), nil
		}
		s.deliver(ctx, existing, contact, channel, log)
		return s.finish(req.Kind, res, OutcomeReusedSent), nil
	}

	e := models.Entitlement{
		ID:                uuid.New(),
		Kind:              req.Kind,
		SubjectID:         req.SubjectID,
		Term:              req.Term,
		IssuedAt:          req.Now.UTC(),
		ExpiryAt:          expiryAt,
		PaymentPercentage: res.PaymentPercentage,
		AuthorizedChannel: channel,
		Status:            models.EntitlementActive,
	}
	if err := s.deps.Repo.CreateEntitlement(ctx, e); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("entitlement issued",
		slog.String("id", e.ID.String()),
		slog.Time("expiry_at", e.ExpiryAt),
		slog.Float64("percentage", e.PaymentPercentage),
	)
	res.Entitlement = &e

	if s.deliver(ctx, &e, contact, channel, log) {
		return s.finish(req.Kind, res, OutcomeIssued), nil
	}
	return s.finish(req.Kind, res, OutcomeIssuedTextOnlyFallback), nil
}

func (s *Service) computeExpiry(req Request, percentage float64) (time.Time, bool, error) {
	if req.Kind == models.KindTransportPass {
		return s.deps.Expiry.ComputeTransportExpiry(req.Term, percentage, req.Now)
	}
	return s.deps.Expiry.ComputeExpiry(req.Term, percentage, req.Now)
}

func (s *Service) finish(kind models.EntitlementKind, res Result, outcome Outcome) Result {
	res.Outcome = outcome
	metrics.IssuanceOutcomes.WithLabelValues(string(kind), string(outcome)).Inc()
	return res
}

// deliver отправляет документ пропуска, при сбое текстовую сводку.
// Возвращает true, если документ доставлен.
func (s *Service) deliver(ctx context.Context, e *models.Entitlement, holder models.Contact, channel string, log *slog.Logger) bool {
	if err := s.sendArtifact(ctx, e, holder, channel); err != nil {
		log.Warn("artifact delivery failed, sending text summary", sl.Err(err))
		metrics.DeliveryFallbacks.WithLabelValues(string(e.Kind)).Inc()
		s.sendText(ctx, *e, holder, channel, log)
		return false
	}
	return true
}

func (s *Service) sendArtifact(ctx context.Context, e *models.Entitlement, holder models.Contact, channel string) error {
	if e.ArtifactRef == "" {
		ref, err := s.deps.Artifacts.RenderAndStore(ctx, *e, holder)
		if err != nil {
			return err
		}
		if err := s.deps.Repo.SetArtifactRef(ctx, e.ID, ref); err != nil {
			return err
		}
		e.ArtifactRef = ref
	}
	url, err := s.deps.Artifacts.RetrievableURL(e.ArtifactRef, s.opts.URLTTL)
	if err != nil {
		return err
	}
	return s.deps.Sender.Send(ctx, channel, Caption(*e, holder), url)
}

func (s *Service) sendText(ctx context.Context, e models.Entitlement, holder models.Contact, channel string, log *slog.Logger) {
	if err := s.deps.Sender.Send(ctx, channel, Summary(e, holder), ""); err != nil {
		log.Error("text summary delivery failed", sl.Err(err))
	}
}

// Caption подпись к документу пропуска.
func Caption(e models.Entitlement, holder models.Contact) string {
	return fmt.Sprintf("%s for %s (%s), valid until %s.",
		e.Kind.Title(), holder.FullName(), e.SubjectID, e.ExpiryAt.Format("02 Jan 2006"))
}

// Summary текстовая сводка пропуска без документа.
func Summary(e models.Entitlement, holder models.Contact) string {
	return fmt.Sprintf("%s\nStudent: %s (%s)\nTerm: %s\nPaid: %.0f%%\nValid until: %s\nPass ID: %s",
		e.Kind.Title(), holder.FullName(), e.SubjectID, e.Term,
		e.PaymentPercentage, e.ExpiryAt.Format("02 Jan 2006"), e.ID)
}
