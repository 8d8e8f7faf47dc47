// Package list реализует HTTP-обработчик списка уведомлений пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/trialguard/internal/http/handlers/params"
	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

// Service описывает интерфейс получения уведомлений.
type Service interface {
	List(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
}

// Handler обрабатывает запросы на список уведомлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список уведомлений
// @Description Уведомления пользователя, новые первыми.
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Param unread query bool false "Только непрочитанные"
// @Param limit query int false "Размер страницы (по умолчанию 20, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.Notification}
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.list"

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, offset := params.Page(r)

	list, err := h.service.List(r.Context(), userUID, unreadOnly, limit, offset)
	if err != nil {
		h.log.Error("failed to list notifications",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not list notifications"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OKWithData(list))
}
