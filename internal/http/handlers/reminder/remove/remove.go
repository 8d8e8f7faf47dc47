// Package remove реализует HTTP-обработчик удаления неотправленного напоминания.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/trialguard/internal/http/handlers/params"
	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

// Service описывает интерфейс удаления напоминания.
type Service interface {
	DeleteReminder(ctx context.Context, userUID string, id int64) error
}

// Handler обрабатывает запросы на удаление напоминания.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить напоминание
// @Description Удаляет напоминание, которое ещё не отправлено.
// @Tags Reminders
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID напоминания"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Напоминание не найдено или уже отправлено"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /reminders/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reminder.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}
	id, err := params.ID(r, "id")
	if err != nil {
		response.JSON(w, r, http.StatusBadRequest, response.Error("failed to decode id from url"))
		return
	}

	err = h.service.DeleteReminder(r.Context(), userUID, id)
	if errors.Is(err, repository.ErrNotFound) {
		response.JSON(w, r, http.StatusNotFound, response.Error("reminder not found"))
		return
	}
	if err != nil {
		log.Error("failed to delete reminder", sl.Err(err))
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not delete reminder"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OK())
}
