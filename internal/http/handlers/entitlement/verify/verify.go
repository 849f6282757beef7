// Package verify реализует HTTP-обработчик проверки пропуска на входе.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/gatepass-assistant/internal/http/response"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/verification"
)

// Service описывает интерфейс проверки пропуска.
type Service interface {
	Verify(ctx context.Context, id uuid.UUID, scannedBy string, now time.Time) (verification.Result, error)
}

// Request тело запроса: номер, с которого предъявлен пропуск.
type Request struct {
	ScannedBy string `json:"scanned_by" validate:"required" example:"+263771234567"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	now      func() time.Time
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ServeHTTP godoc
// @Summary Проверить пропуск
// @Description Возвращает статус пропуска (valid, expired, revoked, not_found) и записывает сканирование.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param id path string true "ID пропуска"
// @Param request body Request true "Номер предъявителя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /entitlements/{id}/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Verify(r.Context(), id, req.ScannedBy, h.now())
	if err != nil {
		log.Error("failed to verify entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not verify entitlement"))
		return
	}

	log.Info("entitlement verified", slog.String("id", id.String()), slog.String("status", string(res.Status)))
	render.JSON(w, r, response.StatusOKWithData(res))
}
