// Package issue реализует HTTP-обработчик выдачи пропуска по событию оплаты.
//
// Handler принимает вид пропуска, ученика, четверть и суммы, валидирует их и
// передаёт в сервис выдачи. Исходы «ниже порога» и «лимит» являются
// штатными и возвращаются со статусом 200.
package issue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gatepass-assistant/internal/http/response"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/expiry"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/issuance"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
)

// Service описывает интерфейс выдачи пропуска.
type Service interface {
	Issue(ctx context.Context, req issuance.Request) (issuance.Result, error)
}

// Request тело запроса выдачи.
type Request struct {
	Kind          string  `json:"kind" validate:"required,oneof=gate_pass transport_pass" example:"gate_pass"`
	SubjectID     string  `json:"subject_id" validate:"required" example:"SSC20246303"`
	Term          string  `json:"term" validate:"required" example:"2026-1"`
	PaymentAmount float64 `json:"payment_amount" validate:"gte=0" example:"700"`
	TotalDue      float64 `json:"total_due" validate:"gt=0" example:"1000"`
	Channel       string  `json:"channel,omitempty" example:"+263771234567"`
}

// Result тело успешного ответа.
type Result struct {
	Outcome           issuance.Outcome    `json:"outcome"`
	Entitlement       *models.Entitlement `json:"entitlement,omitempty"`
	Channel           string              `json:"channel,omitempty"`
	PaymentPercentage float64             `json:"payment_percentage"`
	Tier              string              `json:"tier,omitempty"`
	RequestCount      int                 `json:"request_count"`
	HolderName        string              `json:"holder_name,omitempty"`
}

// Handler управляет запросами на выдачу пропусков.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	now      func() time.Time
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ServeHTTP godoc
// @Summary Выдать пропуск
// @Description Выдаёт пропуск или повторно отправляет действующий. Возвращает исход запроса.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные запроса"
// @Success 200 {object} response.Response "Исход выдачи"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Ученик не найден"
// @Failure 409 {object} response.ErrorResponse "Номер не зарегистрирован в WhatsApp"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /entitlements [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.issue"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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
	log = log.With(slog.String("subject_id", req.SubjectID), slog.String("kind", req.Kind))

	res, err := h.service.Issue(r.Context(), issuance.Request{
		Kind:          models.EntitlementKind(req.Kind),
		SubjectID:     req.SubjectID,
		Term:          req.Term,
		PaymentAmount: req.PaymentAmount,
		TotalDue:      req.TotalDue,
		Channel:       req.Channel,
		Now:           h.now(),
	})
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to issue entitlement", sl.Err(err))
		} else {
			log.Warn("entitlement request rejected", sl.Err(err))
		}
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("entitlement request handled", slog.String("outcome", string(res.Outcome)))
	render.JSON(w, r, response.StatusOKWithData(Result{
		Outcome:           res.Outcome,
		Entitlement:       res.Entitlement,
		Channel:           res.Channel,
		PaymentPercentage: res.PaymentPercentage,
		Tier:              string(res.Tier),
		RequestCount:      res.RequestCount,
		HolderName:        res.HolderName,
	}))
}

func statusFor(err error) (int, string) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, vErr.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "subject not found"
	case errors.Is(err, models.ErrChannelUnverified):
		return http.StatusConflict, "delivery channel is not registered on WhatsApp"
	case errors.Is(err, term.ErrUnknownTerm), errors.Is(err, expiry.ErrInvalidTerm):
		return http.StatusUnprocessableEntity, "term is not configured"
	default:
		return http.StatusInternalServerError, "could not issue entitlement"
	}
}
