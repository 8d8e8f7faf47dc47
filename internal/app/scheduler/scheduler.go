// Package scheduler собирает процесс рассылки напоминаний: cron, потребитель
// ручных запусков и сервер метрик.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/trialguard/internal/cache"
	"github.com/magabrotheeeer/trialguard/internal/config"
	"github.com/magabrotheeeer/trialguard/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/lib/smtp"
	"github.com/magabrotheeeer/trialguard/internal/metrics"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
	schedulerservice "github.com/magabrotheeeer/trialguard/internal/services/scheduler"
	"github.com/magabrotheeeer/trialguard/internal/services/sender"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	cfg       *config.Config
	scheduler *schedulerservice.Service
	metrics   *http.Server
	db        *repository.Storage
	cache     *cache.Cache
	conn      *amqp.Connection
	ch        *amqp.Channel
	logger    *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		if err := repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика. Redis и брокер
// необязательны: без них нет блокировки прогона, событий и ручных запусков.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	a := &App{cfg: cfg, db: db, logger: logger}

	if err := waitForDB(ctx, db); err != nil {
		a.close()
		return nil, err
	}

	var (
		locker    dispatcher.Locker
		publisher dispatcher.Publisher
		dialer    smtp.Dialer
	)
	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis unavailable, run lock disabled", sl.Err(err))
		} else {
			locker = cache.NewLocker(a.cache)
		}
	}
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.Queues())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		publisher = rabbitmq.NewPublisher(a.ch, rabbitmq.ExchangeName)
	}
	if cfg.MailEnabled() {
		dialer = smtp.NewTransport(cfg.SMTP, logger)
	} else {
		logger.Warn("smtp is not configured, reminders will be delivered in-app only")
	}

	mode, err := dispatcher.ParseMode(cfg.DispatchMode)
	if err != nil {
		a.close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	d := dispatcher.New(
		db,
		sender.NewMailer(dialer, logger),
		publisher,
		locker,
		metrics.NewDispatch(reg),
		dispatcher.Settings{
			BatchSize:   cfg.BatchSize,
			ClaimLease:  cfg.ClaimLease,
			LockTTL:     cfg.LockTTL,
			SendTimeout: cfg.SMTPTimeout,
			Location:    cfg.Location(),
		},
		logger,
	)
	a.scheduler = schedulerservice.NewService(d, mode, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// RunOnce выполняет один прогон и закрывает ресурсы.
func (a *App) RunOnce(ctx context.Context, mode dispatcher.Mode) (dispatcher.Summary, error) {
	defer a.close()
	return a.scheduler.RunOnce(ctx, mode)
}

// Run запускает планировщик и работает до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Schedule(ctx, a.cfg.DispatchSchedule); err != nil {
		a.close()
		return err
	}

	var consumerDone <-chan struct{}
	if a.ch != nil {
		done, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.DispatchQueue, 1, a.logger, a.scheduler.HandleDispatchRequest)
		if err != nil {
			a.close()
			return err
		}
		consumerDone = done
	}

	go func() {
		a.logger.Info("metrics server starting", slog.String("address", a.metrics.Addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", sl.Err(err))
		}
	}()

	a.scheduler.Start()
	<-ctx.Done()
	a.logger.Info("shutting down scheduler service")

	<-a.scheduler.Stop().Done()
	if consumerDone != nil {
		<-consumerDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}

	a.close()
	return nil
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
