// Package subscription содержит бизнес-логику управления подписками и их напоминаниями.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/trialguard/internal/cache"
	"github.com/magabrotheeeer/trialguard/internal/lib/billing"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

// ErrInvalidInput данные запроса не прошли проверку.
var ErrInvalidInput = errors.New("invalid input")

// dateLayouts допустимые форматы дат во входных данных.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Repository определяет методы для работы с подписками и напоминаниями в хранилище.
type Repository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription, autoReminder *time.Time) (int64, error)
	GetSubscription(ctx context.Context, userUID string, id int64) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription, reschedule bool, autoReminder *time.Time) error
	DeleteSubscription(ctx context.Context, userUID string, id int64) error
	CancelSubscription(ctx context.Context, userUID string, id int64) error
	ListSubscriptions(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error)

	CreateReminder(ctx context.Context, userUID string, subscriptionID int64, date time.Time) (*models.Reminder, error)
	ListReminders(ctx context.Context, userUID string) ([]models.Reminder, error)
	DeleteReminder(ctx context.Context, userUID string, id int64) error
}

// Cache сбрасывает закешированную аналитику пользователя.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// Service реализует бизнес-логику работы с подписками. cache может быть nil.
type Service struct {
	repo     Repository
	cache    Cache
	leadTime time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewService создает новый экземпляр Service. leadTime задаёт, за сколько до
// окончания триала ставится автоматическое напоминание.
func NewService(repo Repository, cache Cache, leadTime time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		leadTime: leadTime,
		log:      log,
		now:      time.Now,
	}
}

// WithClock подменяет источник текущего времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create создает подписку пользователя и, если триал ещё не закончился,
// автоматическое напоминание о его окончании.
func (s *Service) Create(ctx context.Context, userUID string, req models.DummySubscription) (int64, error) {
	const op = "subscription.Create"

	sub, err := fromRequest(req)
	if err != nil {
		return 0, err
	}
	sub.UserUID = userUID
	sub.Status = models.StatusActive

	id, err := s.repo.CreateSubscription(ctx, sub, s.autoReminder(sub))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscription", slog.Int64("id", id), slog.String("user_uid", userUID))
	s.invalidate(ctx, userUID)
	return id, nil
}

// Get возвращает подписку пользователя. Прошедшая дата списания сдвигается
// вперёд на целое число периодов.
func (s *Service) Get(ctx context.Context, userUID string, id int64) (*models.Subscription, error) {
	const op = "subscription.Get"

	sub, err := s.repo.GetSubscription(ctx, userUID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	RollForward(sub, s.now())
	return sub, nil
}

// List возвращает подписки пользователя с пагинацией.
func (s *Service) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	const op = "subscription.List"

	subs, err := s.repo.ListSubscriptions(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	for _, sub := range subs {
		RollForward(sub, now)
	}
	return subs, nil
}

// Update перезаписывает поля подписки. Статус не меняется. Автоматическое
// напоминание пересчитывается только при смене даты окончания триала.
func (s *Service) Update(ctx context.Context, userUID string, id int64, req models.DummySubscription) error {
	const op = "subscription.Update"

	current, err := s.repo.GetSubscription(ctx, userUID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sub, err := fromRequest(req)
	if err != nil {
		return err
	}
	sub.ID = id
	sub.UserUID = userUID
	sub.Status = current.Status

	var reminder *time.Time
	reschedule := sub.Status == models.StatusActive && !sameInstant(current.TrialEndDate, sub.TrialEndDate)
	if reschedule {
		reminder = s.autoReminder(sub)
	}
	if err := s.repo.UpdateSubscription(ctx, sub, reschedule, reminder); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("updated subscription", slog.Int64("id", id))
	s.invalidate(ctx, userUID)
	return nil
}

// Delete удаляет подписку вместе с её напоминаниями.
func (s *Service) Delete(ctx context.Context, userUID string, id int64) error {
	const op = "subscription.Delete"

	if err := s.repo.DeleteSubscription(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("deleted subscription", slog.Int64("id", id))
	s.invalidate(ctx, userUID)
	return nil
}

// Cancel переводит подписку в статус canceled и снимает неотправленные напоминания.
func (s *Service) Cancel(ctx context.Context, userUID string, id int64) error {
	const op = "subscription.Cancel"

	if err := s.repo.CancelSubscription(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("canceled subscription", slog.Int64("id", id))
	s.invalidate(ctx, userUID)
	return nil
}

// AddReminder ставит ручное напоминание по подписке пользователя.
func (s *Service) AddReminder(ctx context.Context, userUID string, subscriptionID int64, req models.DummyReminder) (*models.Reminder, error) {
	const op = "subscription.AddReminder"

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date: %w", ErrInvalidInput, err)
	}
	r, err := s.repo.CreateReminder(ctx, userUID, subscriptionID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created reminder", slog.Int64("id", r.ID), slog.Int64("subscription_id", subscriptionID))
	return r, nil
}

// ListReminders возвращает напоминания пользователя.
func (s *Service) ListReminders(ctx context.Context, userUID string) ([]models.Reminder, error) {
	const op = "subscription.ListReminders"

	reminders, err := s.repo.ListReminders(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reminders, nil
}

// DeleteReminder удаляет неотправленное напоминание пользователя.
func (s *Service) DeleteReminder(ctx context.Context, userUID string, id int64) error {
	const op = "subscription.DeleteReminder"

	if err := s.repo.DeleteReminder(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// autoReminder дата автоматического напоминания: за leadTime до конца триала,
// но не раньше текущего момента. nil, если триал уже закончился или не задан.
func (s *Service) autoReminder(sub models.Subscription) *time.Time {
	now := s.now()
	if sub.TrialEndDate == nil || !sub.TrialEndDate.After(now) {
		return nil
	}
	at := sub.TrialEndDate.Add(-s.leadTime)
	if at.Before(now) {
		at = now
	}
	return &at
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *Service) invalidate(ctx context.Context, userUID string) {
	if s.cache == nil {
		return
	}
	key := cache.AnalyticsKey(userUID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate analytics cache", slog.String("key", key), sl.Err(err))
	}
}

// RollForward сдвигает прошедшую дату следующего списания вперёд на целое
// число периодов. Подписки с неизвестным периодом не трогаются.
func RollForward(sub *models.Subscription, now time.Time) {
	if sub.NextBillingDate == nil || sub.NextBillingDate.After(now) {
		return
	}
	cycle, err := billing.ParseCycle(sub.BillingCycle)
	if err != nil {
		return
	}
	next, err := cycle.RollForward(*sub.NextBillingDate, now)
	if err != nil {
		return
	}
	sub.NextBillingDate = &next
}

func fromRequest(req models.DummySubscription) (models.Subscription, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Subscription{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%w: price: %w", ErrInvalidInput, err)
	}
	if !price.IsPositive() {
		return models.Subscription{}, fmt.Errorf("%w: %w", ErrInvalidInput, billing.ErrInvalidPrice)
	}
	if !price.Equal(price.Round(2)) {
		return models.Subscription{}, fmt.Errorf("%w: price must have at most two decimal places", ErrInvalidInput)
	}

	cycle, err := billing.ParseCycle(req.BillingCycle)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sub := models.Subscription{
		Name:         name,
		Price:        price,
		BillingCycle: string(cycle),
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		sub.Category = &c
	}
	if req.TrialEndDate != "" {
		t, err := parseDate(req.TrialEndDate)
		if err != nil {
			return models.Subscription{}, fmt.Errorf("%w: trial_end_date: %w", ErrInvalidInput, err)
		}
		sub.TrialEndDate = &t
	}
	if req.NextBillingDate != "" {
		t, err := parseDate(req.NextBillingDate)
		if err != nil {
			return models.Subscription{}, fmt.Errorf("%w: next_billing_date: %w", ErrInvalidInput, err)
		}
		sub.NextBillingDate = &t
	}
	return sub, nil
}

// parseDate разбирает дату в формате RFC3339 или 2006-01-02 (полночь UTC).
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
