package trialguard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/trialguard/internal/cache"
	"github.com/magabrotheeeer/trialguard/internal/config"
	"github.com/magabrotheeeer/trialguard/internal/lib/jwt"
	"github.com/magabrotheeeer/trialguard/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/migrations"
	analyticsservice "github.com/magabrotheeeer/trialguard/internal/services/analytics"
	authservice "github.com/magabrotheeeer/trialguard/internal/services/auth"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
	notificationservice "github.com/magabrotheeeer/trialguard/internal/services/notification"
	subscriptionservice "github.com/magabrotheeeer/trialguard/internal/services/subscription"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

// App процесс HTTP API.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает приложение: подключает базу, применяет миграции, поднимает
// кеш и брокер, если они настроены, и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db}

	// Кеш и брокер необязательны: без них API работает, но без кеша
	// аналитики и ручного запуска рассылки.
	var (
		subscriptionCache subscriptionservice.Cache
		analyticsCache    analyticsservice.Cache
		publisher         dispatcher.Publisher
	)
	if cfg.AddressRedis != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis unavailable, analytics cache disabled", sl.Err(err))
		} else {
			subscriptionCache = app.cache
			analyticsCache = app.cache
		}
	}
	if cfg.RabbitMQURL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, err
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.Queues())
		if err != nil {
			app.close()
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(app.ch, rabbitmq.ExchangeName)
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := NewRouter(cfg.HTTPServer, logger, reg, Services{
		Auth:          authservice.NewService(db, jwtMaker),
		Subscriptions: subscriptionservice.NewService(db, subscriptionCache, cfg.ReminderLeadTime, logger),
		Analytics:     analyticsservice.NewService(db, analyticsCache, cfg.CacheTTL, logger),
		Notifications: notificationservice.NewService(db, logger),
		Trigger:       dispatcher.NewTrigger(publisher),
		DB:            db.DB,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
