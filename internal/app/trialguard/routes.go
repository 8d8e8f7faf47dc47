// Package trialguard собирает HTTP API: зависимости, маршруты и сервер.
package trialguard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация OpenAPI-описания для /docs.
	_ "github.com/magabrotheeeer/trialguard/docs"
	"github.com/magabrotheeeer/trialguard/internal/config"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/admin/dispatch"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/analytics/summary"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/health"
	notificationlist "github.com/magabrotheeeer/trialguard/internal/http/handlers/notification/list"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/notification/read"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/notification/readall"
	notificationremove "github.com/magabrotheeeer/trialguard/internal/http/handlers/notification/remove"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/notification/unread"
	remindercreate "github.com/magabrotheeeer/trialguard/internal/http/handlers/reminder/create"
	reminderlist "github.com/magabrotheeeer/trialguard/internal/http/handlers/reminder/list"
	reminderremove "github.com/magabrotheeeer/trialguard/internal/http/handlers/reminder/remove"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/trialguard/internal/http/handlers/subscription/update"
	subscriptionread "github.com/magabrotheeeer/trialguard/internal/http/handlers/subscription/read"
	subscriptionremove "github.com/magabrotheeeer/trialguard/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/trialguard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trialguard/internal/metrics"
	"github.com/magabrotheeeer/trialguard/internal/models"
	analyticsservice "github.com/magabrotheeeer/trialguard/internal/services/analytics"
	authservice "github.com/magabrotheeeer/trialguard/internal/services/auth"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
	notificationservice "github.com/magabrotheeeer/trialguard/internal/services/notification"
	subscriptionservice "github.com/magabrotheeeer/trialguard/internal/services/subscription"
)

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Auth          *authservice.Service
	Subscriptions *subscriptionservice.Service
	Analytics     *analyticsservice.Service
	Notifications *notificationservice.Service
	Trigger       *dispatcher.Trigger
	DB            health.Pinger
}

// NewRouter регистрирует все маршруты приложения.
func NewRouter(cfg config.HTTPServer, logger *slog.Logger, reg *prometheus.Registry, s Services) http.Handler {
	r := chi.NewRouter()

	// Без настроенного списка кросс-доменные запросы запрещены: пустой
	// AllowedOrigins в cors означает "разрешить всех".
	corsOptions := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: len(cfg.AllowedOrigins) > 0,
		MaxAge:           300,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsOptions.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.NewHTTP(reg).Middleware,
		cors.Handler(corsOptions),
	)

	limiter := middlewarectx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(limiter.Middleware(logger))

			r.Get("/subscriptions", list.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions", create.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/{id}", subscriptionread.New(logger, s.Subscriptions).ServeHTTP)
			r.Put("/subscriptions/{id}", update.New(logger, s.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions/{id}", subscriptionremove.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", cancel.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/{id}/reminders", remindercreate.New(logger, s.Subscriptions).ServeHTTP)

			r.Get("/reminders", reminderlist.New(logger, s.Subscriptions).ServeHTTP)
			r.Delete("/reminders/{id}", reminderremove.New(logger, s.Subscriptions).ServeHTTP)

			r.Get("/notifications", notificationlist.New(logger, s.Notifications).ServeHTTP)
			r.Get("/notifications/unread-count", unread.New(logger, s.Notifications).ServeHTTP)
			r.Post("/notifications/read-all", readall.New(logger, s.Notifications).ServeHTTP)
			r.Post("/notifications/{id}/read", read.New(logger, s.Notifications).ServeHTTP)
			r.Delete("/notifications/{id}", notificationremove.New(logger, s.Notifications).ServeHTTP)

			r.Get("/analytics", summary.New(logger, s.Analytics).ServeHTTP)

			r.With(middlewarectx.RequireRole(models.RoleAdmin, logger)).
				Post("/admin/reminders/dispatch", dispatch.New(logger, s.Trigger).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, s.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)

	return r
}
