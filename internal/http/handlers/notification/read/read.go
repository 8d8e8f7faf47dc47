// Package read реализует HTTP-обработчик отметки уведомления прочитанным.
package read

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

// Service описывает интерфейс отметки прочтения.
type Service interface {
	MarkRead(ctx context.Context, userUID string, id int64) error
}

// Handler обрабатывает запросы на отметку прочтения.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметить уведомление прочитанным
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID уведомления"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Уведомление не найдено"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications/{id}/read [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.read"

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

	err = h.service.MarkRead(r.Context(), userUID, id)
	if errors.Is(err, repository.ErrNotFound) {
		response.JSON(w, r, http.StatusNotFound, response.Error("notification not found"))
		return
	}
	if err != nil {
		h.log.Error("failed to mark notification read",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not update notification"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OK())
}
