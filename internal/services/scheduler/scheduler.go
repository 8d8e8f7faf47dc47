// Package scheduler запускает прогоны рассылки напоминаний по расписанию
// и по запросам оператора из брокера.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/trialguard/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
)

// Runner выполняет один прогон рассылки.
type Runner interface {
	Run(ctx context.Context, mode dispatcher.Mode) (dispatcher.Summary, error)
}

// Service планировщик рассылки.
type Service struct {
	runner Runner
	mode   dispatcher.Mode
	cron   *cron.Cron
	log    *slog.Logger
}

// NewService создает планировщик. mode режим плановых прогонов.
func NewService(runner Runner, mode dispatcher.Mode, log *slog.Logger) *Service {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn))
	return &Service{
		runner: runner,
		mode:   mode,
		cron:   cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		log:    log,
	}
}

// Schedule регистрирует плановый прогон по cron-выражению spec.
// Прогоны получают ctx и прерываются при его отмене.
func (s *Service) Schedule(ctx context.Context, spec string) error {
	const op = "scheduler.Schedule"

	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(ctx, s.mode) }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("dispatch scheduled", slog.String("op", op), slog.String("spec", spec), slog.String("mode", string(s.mode)))
	return nil
}

// Start запускает cron в отдельной горутине.
func (s *Service) Start() {
	s.cron.Start()
}

// Stop останавливает cron и возвращает контекст, который завершится,
// когда закончатся уже идущие прогоны.
func (s *Service) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce выполняет прогон и пишет его итог в лог. Занятая блокировка
// не считается ошибкой.
func (s *Service) RunOnce(ctx context.Context, mode dispatcher.Mode) (dispatcher.Summary, error) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op), slog.String("mode", string(mode)))

	summary, err := s.runner.Run(ctx, mode)
	switch {
	case errors.Is(err, dispatcher.ErrRunInProgress):
		log.Info("another dispatch run holds the lock, skipping")
		return summary, err
	case err != nil:
		log.Error("dispatch run failed", sl.Err(err))
		return summary, err
	}
	log.Info("dispatch run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("claimed", summary.Claimed),
		slog.Int("processed", summary.Processed()),
		slog.Int("retried", summary.Retried),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// HandleDispatchRequest обрабатывает сообщение из очереди ручных запусков.
// Битое сообщение отбрасывается, прогон, упавший целиком, тоже: повтор
// выполнит следующий плановый прогон.
func (s *Service) HandleDispatchRequest(ctx context.Context, body []byte) error {
	const op = "scheduler.HandleDispatchRequest"

	req, mode, err := dispatcher.DecodeRequest(body)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrReject, err)
	}
	s.log.Info("manual dispatch requested",
		slog.String("op", op),
		slog.String("requested_by", req.RequestedBy),
		slog.String("mode", string(mode)),
	)
	_, _ = s.RunOnce(ctx, mode)
	return nil
}
