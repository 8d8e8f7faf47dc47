// Package summary реализует HTTP-обработчик аналитики расходов пользователя.
package summary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/http/response"
	"github.com/magabrotheeeer/trialguard/internal/lib/billing"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
)

// Service описывает интерфейс расчёта аналитики.
type Service interface {
	Summary(ctx context.Context, userUID string) (billing.Summary, error)
}

// Handler обрабатывает запросы аналитики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Аналитика расходов
// @Description Месячные и годовые расходы по активным подпискам, разбивка по категориям и периодам оплаты, списания на ближайшие 30 дней.
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=billing.Summary}
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /analytics [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analytics.summary"

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}

	res, err := h.service.Summary(r.Context(), userUID)
	if err != nil {
		h.log.Error("failed to build analytics",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.JSON(w, r, http.StatusInternalServerError, response.Error("could not build analytics"))
		return
	}
	response.JSON(w, r, http.StatusOK, response.OKWithData(res))
}
