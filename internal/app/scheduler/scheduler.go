// Package scheduler запускает периодические задачи: напоминания о задолженности,
// синхронизацию профилей и закрытие истёкших пропусков.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gatepass-assistant/internal/app/gatepass"
	"github.com/magabrotheeeer/gatepass-assistant/internal/clients/schoolapi"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/backoff"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/profilesync"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/reminder"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
	"github.com/magabrotheeeer/gatepass-assistant/internal/storage/cache"
	"github.com/magabrotheeeer/gatepass-assistant/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	scheduler gocron.Scheduler
	jobs      *Jobs
	cfg       *config.Config
	conn      *amqp.Connection
	ch        *amqp.Channel
	db        *repository.Storage
	cache     *cache.Cache
	logger    *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	terms, err := cfg.TermTable()
	if err != nil {
		return nil, err
	}
	calendar, err := term.NewCalendar(terms)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ReminderQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	reminders := reminder.NewService(calendar, db, db, rabbitmq.NewReminderPublisher(ch), backoff.RealSleeper{},
		reminder.Options{BatchSize: cfg.BatchSize, BatchPause: cfg.BatchPause}, logger)
	profiles := profilesync.NewService(schoolapi.New(cfg.SchoolAPI), db, cacheRedis,
		gatepass.ProfileOptions(cfg), gatepass.Retrier(cfg), backoff.RealSleeper{}, logger)

	return &App{
		scheduler: s,
		jobs:      NewJobs(reminders, profiles, db, logger),
		cfg:       cfg,
		conn:      conn,
		ch:        ch,
		db:        db,
		cache:     cacheRedis,
		logger:    logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run регистрирует задачи и работает до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.jobs.Register(ctx, a.scheduler, a.cfg.Reminder.Interval, a.cfg.SyncInterval); err != nil {
		return err
	}
	a.scheduler.Start()
	a.logger.Info("scheduler started", slog.Int("jobs", len(a.scheduler.Jobs())))

	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")
	if err := a.scheduler.Shutdown(); err != nil {
		a.logger.Error("failed to stop scheduler", slog.Any("err", err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", slog.Any("err", err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
	closeResources(a.ch, a.conn, a.logger)
	return nil
}
