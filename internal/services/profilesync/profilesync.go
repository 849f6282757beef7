// Package profilesync поддерживает локальные контакты учеников в актуальном состоянии.
//
// Контакт берётся из кеша или хранилища, если он синхронизирован в пределах окна
// свежести, иначе запрашивается у школьной системы. Пакетная синхронизация идёт
// последовательно по страницам с паузой между ними.
package profilesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/backoff"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/phone"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// ProfileSource внешний источник профилей.
type ProfileSource interface {
	FetchProfile(ctx context.Context, subjectID string) (models.Profile, error)
	ListProfiles(ctx context.Context, page, size int) ([]models.Profile, bool, error)
}

// Repository хранилище контактов.
type Repository interface {
	GetContact(ctx context.Context, subjectID string) (*models.Contact, bool, error)
	UpsertContact(ctx context.Context, c models.Contact) error
	RecordFailedSync(ctx context.Context, subjectID, reason string, at time.Time) error
}

// Cache кеш контактов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Options параметры синхронизации.
type Options struct {
	DefaultCountryCode string
	Freshness          time.Duration
	CacheTTL           time.Duration
	PageSize           int
	PagePause          time.Duration
}

// SyncStats итог пакетной синхронизации.
type SyncStats struct {
	Pages  int
	Synced int
	Failed int
}

// Service синхронизирует контакты.
type Service struct {
	source  ProfileSource
	repo    Repository
	cache   Cache
	opts    Options
	retrier *backoff.Retrier
	sleeper backoff.Sleeper
	log     *slog.Logger
}

// NewService создаёт Service.
func NewService(source ProfileSource, repo Repository, cache Cache, opts Options, retrier *backoff.Retrier, sleeper backoff.Sleeper, log *slog.Logger) *Service {
	return &Service{
		source:  source,
		repo:    repo,
		cache:   cache,
		opts:    opts,
		retrier: retrier,
		sleeper: sleeper,
		log:     log,
	}
}

func cacheKey(subjectID string) string {
	return "contact:" + subjectID
}

// ToContact собирает контакт из профиля. Предпочтительный канал номер опекуна,
// если он корректен, иначе номер ученика.
func ToContact(p models.Profile, countryCode string, now time.Time) models.Contact {
	c := models.Contact{
		SubjectID:          p.SubjectID,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Email:              p.Email,
		OutstandingBalance: p.Balance,
		LastSyncedAt:       now.UTC(),
	}
	if n, ok := phone.Normalize(p.StudentMobile, countryCode); ok {
		c.StudentMobile = n
	}
	if n, ok := phone.Normalize(p.GuardianMobile, countryCode); ok {
		c.GuardianMobile = n
	}
	c.PreferredChannel = c.GuardianMobile
	if c.PreferredChannel == "" {
		c.PreferredChannel = c.StudentMobile
	}
	return c
}

func (s *Service) fresh(c models.Contact, now time.Time) bool {
	return now.Sub(c.LastSyncedAt) < s.opts.Freshness
}

// Resolve возвращает контакт ученика, при необходимости подтягивая его из школьной системы.
// Если источник недоступен, используется устаревшая локальная запись.
func (s *Service) Resolve(ctx context.Context, subjectID string, now time.Time) (models.Contact, error) {
	const op = "profilesync.Resolve"
	log := s.log.With(slog.String("op", op), slog.String("subject_id", subjectID))

	var cached models.Contact
	found, err := s.cache.Get(ctx, cacheKey(subjectID), &cached)
	if err != nil {
		log.Warn("contact cache read failed", sl.Err(err))
	}
	if found && s.fresh(cached, now) {
		return cached, nil
	}

	stored, found, err := s.repo.GetContact(ctx, subjectID)
	if err != nil {
		return models.Contact{}, fmt.Errorf("%s: %w", op, err)
	}
	if found && s.fresh(*stored, now) {
		s.remember(ctx, *stored, log)
		return *stored, nil
	}

	profile, err := s.source.FetchProfile(ctx, subjectID)
	if err != nil {
		if found {
			log.Warn("profile refresh failed, using stale contact", sl.Err(err))
			return *stored, nil
		}
		return models.Contact{}, fmt.Errorf("%s: %w", op, err)
	}

	c := ToContact(profile, s.opts.DefaultCountryCode, now)
	if err := s.repo.UpsertContact(ctx, c); err != nil {
		return models.Contact{}, fmt.Errorf("%s: %w", op, err)
	}
	s.remember(ctx, c, log)
	log.Info("contact fetched just in time")
	return c, nil
}

func (s *Service) remember(ctx context.Context, c models.Contact, log *slog.Logger) {
	if err := s.cache.Set(ctx, cacheKey(c.SubjectID), c, s.opts.CacheTTL); err != nil {
		log.Warn("contact cache write failed", sl.Err(err))
	}
}

// SyncAll проходит все страницы профилей. Ошибка отдельного профиля записывается
// и не прерывает синхронизацию; ошибка получения страницы прерывает.
func (s *Service) SyncAll(ctx context.Context, now time.Time) (SyncStats, error) {
	const op = "profilesync.SyncAll"
	log := s.log.With(slog.String("op", op))

	var stats SyncStats
	for page := 1; ; page++ {
		var (
			profiles []models.Profile
			hasMore  bool
		)
		err := s.retrier.Do(ctx, func() error {
			var err error
			profiles, hasMore, err = s.source.ListProfiles(ctx, page, s.opts.PageSize)
			return err
		}, func(err error) bool {
			return errors.Is(err, clients.ErrRateLimited)
		}, func(err error, d time.Duration) {
			log.Warn("profile source throttled, backing off", slog.Int("page", page), slog.Duration("wait", d), sl.Err(err))
		})
		if err != nil {
			return stats, fmt.Errorf("%s: page %d: %w", op, page, err)
		}
		stats.Pages++

		for _, p := range profiles {
			if err := s.syncOne(ctx, p, now); err != nil {
				stats.Failed++
				log.Warn("profile sync failed", slog.String("subject_id", p.SubjectID), sl.Err(err))
				if rerr := s.repo.RecordFailedSync(ctx, p.SubjectID, err.Error(), now); rerr != nil {
					log.Error("failed to record failed sync", sl.Err(rerr))
				}
				continue
			}
			stats.Synced++
		}

		if !hasMore || len(profiles) == 0 {
			break
		}
		if err := s.sleeper.Sleep(ctx, s.opts.PagePause); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("profile sync finished",
		slog.Int("pages", stats.Pages),
		slog.Int("synced", stats.Synced),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (s *Service) syncOne(ctx context.Context, p models.Profile, now time.Time) error {
	if p.SubjectID == "" {
		return errors.New("profile without student id")
	}
	c := ToContact(p, s.opts.DefaultCountryCode, now)
	if c.PreferredChannel == "" {
		return errors.New("profile has no valid mobile number")
	}
	if err := s.repo.UpsertContact(ctx, c); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, cacheKey(c.SubjectID)); err != nil {
		s.log.Warn("contact cache invalidate failed", sl.Err(err))
	}
	return nil
}
