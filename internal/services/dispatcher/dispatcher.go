// Package dispatcher рассылает наступившие напоминания о подписках.
//
// Прогон захватывает неотправленные напоминания окна одним запросом, затем по
// одному: отправляет письмо, в одной транзакции отмечает напоминание
// отправленным и создаёт уведомление, публикует событие о новом уведомлении.
// Ошибка по одному напоминанию не прерывает обработку остальных.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/trialguard/internal/cache"
	"github.com/magabrotheeeer/trialguard/internal/lib/billing"
	"github.com/magabrotheeeer/trialguard/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
	"github.com/magabrotheeeer/trialguard/internal/services/sender"
	"github.com/magabrotheeeer/trialguard/internal/storage/repository"
)

// ErrRunInProgress другой прогон держит блокировку.
var ErrRunInProgress = errors.New("dispatch run already in progress")

// Repository хранилище напоминаний.
type Repository interface {
	ClaimDueReminders(ctx context.Context, p repository.ClaimParams) ([]models.DueReminder, error)
	CompleteReminder(ctx context.Context, id int64, token string, n models.Notification) (models.Notification, error)
	ReleaseReminder(ctx context.Context, id int64, token string) error
}

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, msg sender.Message) error
}

// Publisher публикует события в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

// Locker выдаёт блокировку прогона.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, bool, error)
}

// Metrics учитывает прогоны и исходы.
type Metrics interface {
	ObserveRun(result string, took time.Duration)
	AddOutcome(outcome string, n int)
}

// Settings параметры рассылки.
type Settings struct {
	BatchSize      int
	ClaimLease     time.Duration
	LockTTL        time.Duration
	SendTimeout    time.Duration
	PublishTimeout time.Duration
	Location       *time.Location
}

// Dispatcher выполняет прогоны рассылки. Publisher, Locker и Metrics могут быть nil.
type Dispatcher struct {
	repo      Repository
	mailer    Mailer
	publisher Publisher
	locker    Locker
	metrics   Metrics
	cfg       Settings
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт Dispatcher.
func New(repo Repository, mailer Mailer, publisher Publisher, locker Locker, metrics Metrics, cfg Settings, log *slog.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Dispatcher{
		repo:      repo,
		mailer:    mailer,
		publisher: publisher,
		locker:    locker,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник текущего времени.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Run выполняет один прогон рассылки в режиме mode.
func (d *Dispatcher) Run(ctx context.Context, mode Mode) (Summary, error) {
	const op = "dispatcher.Run"

	started := d.now()
	summary := Summary{RunID: uuid.NewString(), Mode: mode}
	log := d.log.With(
		slog.String("op", op),
		slog.String("run_id", summary.RunID),
		slog.String("mode", string(mode)),
	)

	if d.locker != nil {
		lock, ok, err := d.locker.Acquire(ctx, cache.DispatchLockKey, d.cfg.LockTTL)
		switch {
		case err != nil:
			log.Warn("run lock unavailable, relying on claims", sl.Err(err))
		case !ok:
			log.Info("another dispatch run holds the lock, skipping")
			d.observeRun("locked", started)
			return summary, ErrRunInProgress
		default:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("failed to release run lock", sl.Err(err))
				}
			}()
		}
	}

	from, to := mode.Bounds(started, d.cfg.Location)
	due, err := d.repo.ClaimDueReminders(ctx, repository.ClaimParams{
		From:       from,
		To:         to,
		Token:      summary.RunID,
		Now:        started,
		StaleAfter: d.cfg.ClaimLease,
		Limit:      d.cfg.BatchSize,
	})
	if err != nil {
		d.observeRun("error", started)
		log.Error("failed to claim due reminders", sl.Err(err))
		return summary, fmt.Errorf("%s: %w", op, err)
	}
	summary.Claimed = len(due)

	for i, r := range due {
		if ctx.Err() != nil {
			log.Warn("run interrupted, releasing remaining claims", slog.Int("remaining", len(due)-i))
			for _, rest := range due[i:] {
				d.release(ctx, log, rest)
				summary.add(ItemResult{ReminderID: rest.ID, Outcome: OutcomeRetry, Err: ctx.Err()})
			}
			break
		}
		summary.add(d.process(ctx, log, r))
	}

	summary.Duration = d.now().Sub(started)
	d.observeRun("ok", started)
	d.observeOutcomes(summary)

	log.Info("dispatch run finished",
		slog.Int("claimed", summary.Claimed),
		slog.Int("sent", summary.Sent),
		slog.Int("email_skipped", summary.EmailSkipped),
		slog.Int("retried", summary.Retried),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// process обрабатывает одно захваченное напоминание и никогда не паникует наружу.
func (d *Dispatcher) process(ctx context.Context, log *slog.Logger, r models.DueReminder) (res ItemResult) {
	res.ReminderID = r.ID
	log = log.With(slog.Int64("reminder_id", r.ID), slog.Int64("subscription_id", r.SubscriptionID))

	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while processing reminder", slog.Any("panic", p))
			d.release(ctx, log, r)
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	msg, err := sender.ReminderEmail(r, d.cfg.Location)
	if err != nil {
		log.Error("failed to render reminder email", sl.Err(err))
		d.release(ctx, log, r)
		return ItemResult{ReminderID: r.ID, Outcome: OutcomeFailed, Err: err}
	}

	withEmail := true
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err = d.mailer.Send(sendCtx, msg)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, sender.ErrUnavailable):
		withEmail = false
		log.Warn("mailer unavailable, recording notification without email")
	default:
		log.Warn("email delivery failed, reminder will be retried", sl.Err(err))
		d.release(ctx, log, r)
		return ItemResult{ReminderID: r.ID, Outcome: OutcomeRetry, Err: err}
	}

	n, err := d.repo.CompleteReminder(ctx, r.ID, r.ClaimToken, reminderNotification(r, d.cfg.Location))
	if err != nil {
		log.Error("failed to mark reminder sent", sl.Err(err))
		if !errors.Is(err, repository.ErrClaimLost) {
			d.release(ctx, log, r)
		}
		return ItemResult{ReminderID: r.ID, Outcome: OutcomeFailed, Err: err}
	}

	d.publish(ctx, log, n)

	if !withEmail {
		return ItemResult{ReminderID: r.ID, NotificationID: n.ID, Outcome: OutcomeSentWithoutEmail}
	}
	return ItemResult{ReminderID: r.ID, NotificationID: n.ID, Outcome: OutcomeSent}
}

func (d *Dispatcher) release(ctx context.Context, log *slog.Logger, r models.DueReminder) {
	if err := d.repo.ReleaseReminder(context.WithoutCancel(ctx), r.ID, r.ClaimToken); err != nil {
		log.Error("failed to release reminder claim", slog.Int64("reminder_id", r.ID), sl.Err(err))
	}
}

func (d *Dispatcher) publish(ctx context.Context, log *slog.Logger, n models.Notification) {
	if d.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.PublishTimeout)
	defer cancel()

	event := models.NotificationCreated{
		NotificationID: n.ID,
		UserUID:        n.UserUID,
		Type:           n.Type,
		Title:          n.Title,
		CreatedAt:      n.CreatedAt,
	}
	if err := d.publisher.Publish(pubCtx, rabbitmq.CreatedRoutingKey, event); err != nil {
		log.Warn("failed to publish notification event", slog.Int64("notification_id", n.ID), sl.Err(err))
	}
}

func (d *Dispatcher) observeRun(result string, started time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserveRun(result, d.now().Sub(started))
}

func (d *Dispatcher) observeOutcomes(s Summary) {
	if d.metrics == nil {
		return
	}
	d.metrics.AddOutcome(OutcomeSent.String(), s.Sent)
	d.metrics.AddOutcome(OutcomeSentWithoutEmail.String(), s.EmailSkipped)
	d.metrics.AddOutcome(OutcomeRetry.String(), s.Retried)
	d.metrics.AddOutcome(OutcomeFailed.String(), s.Failed)
}

// reminderNotification уведомление в приложении по напоминанию.
func reminderNotification(r models.DueReminder, loc *time.Location) models.Notification {
	cost := fmt.Sprintf("%s %s", r.Price.StringFixed(2), cycleLabel(r.BillingCycle))
	n := models.Notification{
		UserUID: r.UserUID,
		Type:    models.NotificationTypeReminder,
		Title:   fmt.Sprintf("%s subscription reminder", r.Name),
		Message: fmt.Sprintf("Your %s subscription costs %s.", r.Name, cost),
	}
	if r.TrialEndDate != nil {
		date := r.TrialEndDate.In(loc).Format("January 2, 2006")
		n.Title = fmt.Sprintf("%s trial ends on %s", r.Name, date)
		n.Message = fmt.Sprintf("Your %s free trial ends on %s. After that you will be charged %s.", r.Name, date, cost)
	}
	return n
}

// cycleLabel "monthly", "bi-weekly" и т.п. для текста уведомления.
func cycleLabel(s string) string {
	c, err := billing.ParseCycle(s)
	if err != nil {
		return s
	}
	return strings.ToLower(c.Label())
}
