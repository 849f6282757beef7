// Package health отвечает на проверки живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gatepass-assistant/internal/http/response"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
)

// Pinger зависимость, доступность которой проверяется.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	storage Pinger
}

func New(log *slog.Logger, storage Pinger) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Service
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage is unavailable", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
