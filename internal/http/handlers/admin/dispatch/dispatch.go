// Package dispatch реализует HTTP-обработчик внеплановой рассылки напоминаний.
// Доступен только администраторам.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
)

// Request необязательное тело запроса. Пустой режим означает overdue.
type Request struct {
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=overdue today"`
}

// Service описывает интерфейс постановки рассылки в очередь.
type Service interface {
	Request(ctx context.Context, requestedBy string, mode dispatcher.Mode) (models.DispatchRequest, error)
}

// Handler обрабатывает запросы на внеплановую рассылку.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Запустить рассылку напоминаний
// @Description Ставит в очередь внеплановый прогон рассылки. Прогон выполняет планировщик.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request false "Режим: overdue (по умолчанию) или today"
// @Success 202 {object} response.Response{data=models.DispatchRequest}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 503 {object} response.ErrorResponse "Брокер недоступен"
// @Router /admin/reminders/dispatch [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.dispatch"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.JSON(w, r, http.StatusBadRequest, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	mode, err := dispatcher.ParseMode(req.Mode)
	if err != nil {
		response.JSON(w, r, http.StatusBadRequest, response.Error(err.Error()))
		return
	}

	queued, err := h.service.Request(r.Context(), userUID, mode)
	if err != nil {
		log.Error("failed to queue dispatch", sl.Err(err))
		response.JSON(w, r, http.StatusServiceUnavailable, response.Error("could not queue dispatch"))
		return
	}
	log.Info("dispatch queued", slog.String("mode", queued.Mode), slog.String("requested_by", userUID))
	response.JSON(w, r, http.StatusAccepted, response.OKWithData(queued))
}
