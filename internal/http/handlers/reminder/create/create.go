// Package create реализует HTTP-обработчик создания ручного напоминания по подписке.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trialguard/internal/http/handlers/params"
	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
	"github.com/magabrotheeeer/trialguard/internal/services/subscription"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

// Service описывает интерфейс создания напоминания.
type Service interface {
	AddReminder(ctx context.Context, userUID string, subscriptionID int64, req models.DummyReminder) (*models.Reminder, error)
}

// Handler обрабатывает запросы на создание напоминания.
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
// @Summary Создать напоминание
// @Description Ставит одноразовое напоминание по подписке на указанную дату.
// @Tags Reminders
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID подписки"
// @Param request body models.DummyReminder true "Дата напоминания (RFC3339 или 2006-01-02)"
// @Success 201 {object} response.Response{data=models.Reminder}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/{id}/reminders [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reminder.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}
	subscriptionID, err := params.ID(r, "id")
	if err != nil {
		response.JSON(w, r, http.StatusBadRequest, response.Error("failed to decode id from url"))
		return
	}

	var req models.DummyReminder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.JSON(w, r, http.StatusBadRequest, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.JSON(w, r, http.StatusUnprocessableEntity, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	reminder, err := h.service.AddReminder(r.Context(), userUID, subscriptionID, req)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.JSON(w, r, http.StatusNotFound, response.Error("subscription not found"))
	case errors.Is(err, subscription.ErrInvalidInput):
		response.JSON(w, r, http.StatusBadRequest, response.Error(err.Error()))
	case err != nil:
		log.Error("failed to create reminder", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not create reminder"))
	default:
		log.Info("reminder created", slog.Int64("id", reminder.ID))
		response.JSON(w, r, http.StatusCreated, response.OKWithData(reminder))
	}
}
