// Package readall реализует HTTP-обработчик отметки всех уведомлений прочитанными.
package readall

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
)

// Service описывает интерфейс массовой отметки прочтения.
type Service interface {
	MarkAllRead(ctx context.Context, userUID string) (int64, error)
}

// Handler обрабатывает запросы на массовую отметку.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметить все уведомления прочитанными
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications/read-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.readall"

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}

	n, err := h.service.MarkAllRead(r.Context(), userUID)
	if err != nil {
		h.log.Error("failed to mark notifications read",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not update notifications"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OKWithData(map[string]int64{"updated": n}))
}
