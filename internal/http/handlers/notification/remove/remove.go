// Package remove реализует HTTP-обработчик удаления уведомления.
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

// Service описывает интерфейс удаления уведомления.
type Service interface {
	Delete(ctx context.Context, userUID string, id int64) error
}

// Handler обрабатывает запросы на удаление уведомления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить уведомление
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID уведомления"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Уведомление не найдено"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.remove"

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

	err = h.service.Delete(r.Context(), userUID, id)
	if errors.Is(err, repository.ErrNotFound) {
		response.JSON(w, r, http.StatusNotFound, response.Error("notification not found"))
		return
	}
	if err != nil {
		h.log.Error("failed to delete notification",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not delete notification"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OK())
}
