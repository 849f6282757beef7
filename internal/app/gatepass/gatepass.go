// Package gatepass собирает HTTP-сервис: вебхук WhatsApp, выдачу и проверку
// пропусков, скачивание документов, метрики и документацию.
package gatepass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients/assistant"
	"github.com/magabrotheeeer/gatepass-assistant/internal/clients/schoolapi"
	"github.com/magabrotheeeer/gatepass-assistant/internal/clients/whatsapp"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/backoff"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/jwt"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/migrations"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/artifact"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/conversation"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/expiry"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/issuance"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/profilesync"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/ratelimit"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/verification"
	"github.com/magabrotheeeer/gatepass-assistant/internal/storage/cache"
	"github.com/magabrotheeeer/gatepass-assistant/internal/storage/repository"
)

// App HTTP-сервис пропусков.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New подключает хранилища, применяет миграции и собирает сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	terms, err := cfg.TermTable()
	if err != nil {
		return nil, err
	}
	calendar, err := term.NewCalendar(terms)
	if err != nil {
		return nil, err
	}
	subjectPattern, err := regexp.Compile(cfg.SubjectIDPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid subject id pattern: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		closeDB(db, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeDB(db, logger)
		return nil, err
	}

	school := schoolapi.New(cfg.SchoolAPI)
	wa := whatsapp.New(cfg.WhatsApp)

	var asst conversation.Assistant
	if cfg.AssistantBaseURL != "" {
		knowledge, err := assistant.LoadKnowledge(cfg.KnowledgeFile)
		if err != nil {
			logger.Warn("assistant knowledge is unavailable", sl.Err(err))
		}
		asst = assistant.New(cfg.Assistant, knowledge)
	}

	artifacts := artifact.NewService(db, jwt.NewJWTMaker(cfg.SigningKey), cfg.PublicBaseURL)
	contacts := profilesync.NewService(school, db, cacheRedis, ProfileOptions(cfg), Retrier(cfg), backoff.RealSleeper{}, logger)
	issuer := issuance.NewService(issuance.Deps{
		Contacts:  contacts,
		Verifier:  wa,
		Limiter:   ratelimit.NewLimiter(db, ratelimit.Thresholds{DegradedFrom: cfg.DegradedFrom, BlockedFrom: cfg.BlockedFrom}, logger),
		Expiry:    expiry.NewPolicy(calendar, ExpiryRules(cfg)),
		Repo:      db,
		Artifacts: artifacts,
		Sender:    wa,
		Locker:    cacheRedis,
	}, issuance.Options{
		SubjectIDPattern: subjectPattern,
		LockTTL:          cfg.IssueLockTTL,
		URLTTL:           cfg.URLTTL,
	}, logger)

	conv := conversation.NewService(conversation.Deps{
		Sessions:  db,
		Directory: db,
		Accounts:  school,
		Issuer:    issuer,
		Assistant: asst,
		Calendar:  calendar,
	}, conversation.Options{
		SupportContact: cfg.SupportContact,
		DailyLimit:     cfg.UnregisteredDailyLimit,
		FallbackTerm:   cfg.FallbackTerm,
	}, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Conversation: conv,
		Messenger:    wa,
		Issuer:       issuer,
		Verifier:     verification.NewService(db, logger),
		Artifacts:    artifacts,
		Storage:      db,
		VerifyToken:  cfg.VerifyToken,
	}, rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst))

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// ExpiryRules переводит настройки срока действия в правила политики.
func ExpiryRules(cfg *config.Config) expiry.Rules {
	day := 24 * time.Hour
	return expiry.Rules{
		FullThreshold:    cfg.FullThreshold,
		PartialThreshold: cfg.PartialThreshold,
		MinimumThreshold: cfg.MinimumThreshold,
		PartialOffset:    time.Duration(cfg.PartialOffsetDays) * day,
		NextMonthOffset:  time.Duration(cfg.NextMonthOffsetDays) * day,
		Floor:            time.Duration(cfg.FloorDays) * day,
	}
}

// ProfileOptions настройки контактов и синхронизации профилей.
func ProfileOptions(cfg *config.Config) profilesync.Options {
	return profilesync.Options{
		DefaultCountryCode: cfg.DefaultCountryCode,
		Freshness:          cfg.Freshness,
		CacheTTL:           cfg.ContactCacheTTL,
		PageSize:           cfg.PageSize,
		PagePause:          cfg.PagePause,
	}
}

// Retrier политика повторов внешних вызовов при ограничении частоты.
func Retrier(cfg *config.Config) *backoff.Retrier {
	return backoff.New(backoff.Policy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     backoff.DefaultPolicy.MaxInterval,
		Multiplier:      backoff.DefaultPolicy.Multiplier,
	})
}

func closeDB(db *repository.Storage, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close storage", sl.Err(err))
	}
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	closeDB(a.db, a.logger)
}
