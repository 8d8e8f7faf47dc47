// Package list реализует HTTP-обработчик списка напоминаний пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

// Service описывает интерфейс получения напоминаний.
type Service interface {
	ListReminders(ctx context.Context, userUID string) ([]models.Reminder, error)
}

// Handler обрабатывает запросы на список напоминаний.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список напоминаний
// @Tags Reminders
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.Reminder}
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /reminders [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reminder.list"

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}

	reminders, err := h.service.ListReminders(r.Context(), userUID)
	if err != nil {
		h.log.Error("failed to list reminders",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not list reminders"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OKWithData(reminders))
}
