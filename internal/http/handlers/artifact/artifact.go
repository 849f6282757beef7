// Package artifact отдаёт документы пропусков по подписанной ссылке.
package artifact

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gatepass-assistant/internal/http/response"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/artifact"
)

// Service открывает документ по токену ссылки.
type Service interface {
	Open(ctx context.Context, token string) (string, []byte, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Скачать документ пропуска
// @Tags Artifacts
// @Produce plain
// @Param token path string true "Подписанный токен ссылки"
// @Success 200 {string} string "Документ пропуска"
// @Failure 403 {object} response.ErrorResponse "Ссылка недействительна или истекла"
// @Failure 404 {object} response.ErrorResponse "Документ не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /artifacts/{token} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.artifact.download"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	contentType, body, err := h.service.Open(r.Context(), chi.URLParam(r, "token"))
	switch {
	case artifact.IsInvalidLink(err):
		log.Warn("invalid artifact link", sl.Err(err))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("link is invalid or expired"))
		return
	case errors.Is(err, models.ErrNotFound):
		log.Warn("artifact not found", sl.Err(err))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("artifact not found"))
		return
	case err != nil:
		log.Error("failed to open artifact", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not open artifact"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error("failed to write artifact", sl.Err(err))
	}
}
