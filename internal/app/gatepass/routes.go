package gatepass

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	artifacthandler "github.com/magabrotheeeer/gatepass-assistant/internal/http/handlers/artifact"
	"github.com/magabrotheeeer/gatepass-assistant/internal/http/handlers/entitlement/issue"
	"github.com/magabrotheeeer/gatepass-assistant/internal/http/handlers/entitlement/verify"
	"github.com/magabrotheeeer/gatepass-assistant/internal/http/handlers/health"
	"github.com/magabrotheeeer/gatepass-assistant/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/gatepass-assistant/internal/http/middlewarectx"
)

// Services зависимости обработчиков.
type Services struct {
	Conversation webhook.Conversation
	Messenger    webhook.Messenger
	Issuer       issue.Service
	Verifier     verify.Service
	Artifacts    artifacthandler.Service
	Storage      health.Pinger
	VerifyToken  string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, limiter *rate.Limiter) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	wh := webhook.New(logger, s.Conversation, s.Messenger, s.VerifyToken)
	r.Get("/webhook", wh.Verify)
	r.Post("/webhook", wh.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
		r.Post("/entitlements", issue.New(logger, s.Issuer).ServeHTTP)
		r.Post("/entitlements/{id}/verify", verify.New(logger, s.Verifier).ServeHTTP)
	})

	r.With(middlewarectx.RateLimitMiddleware(logger, limiter)).
		Get("/artifacts/{token}", artifacthandler.New(logger, s.Artifacts).ServeHTTP)

	r.Get("/health", health.New(logger, s.Storage).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
