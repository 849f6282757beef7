// Package sender запускает потребителя очереди напоминаний.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients/whatsapp"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/backoff"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/rabbitmq"
	senderservice "github.com/magabrotheeeer/gatepass-assistant/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ReminderQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	retrier := backoff.New(backoff.Policy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     backoff.DefaultPolicy.MaxInterval,
		Multiplier:      backoff.DefaultPolicy.Multiplier,
	})
	senderService := senderservice.NewSenderService(whatsapp.New(cfg.WhatsApp), retrier, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.BalanceReminderQueue, a.senderService.Handler(ctx), a.logger)
	if err != nil {
		a.logger.Error("failed to start reminder consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
