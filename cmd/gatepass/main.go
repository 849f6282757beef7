// Package main Gate Pass Assistant API
//
// @title           Gate Pass Assistant API
// @version         1.0
// @description     WhatsApp-ассистент школы: выдача и проверка пропусков, баланс и выписки.

// @host      localhost:8080
// @BasePath  /
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/gatepass-assistant/internal/app/gatepass"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting gatepass", slog.String("env", cfg.Env))
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := gatepass.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("gatepass stopped gracefully")
}
