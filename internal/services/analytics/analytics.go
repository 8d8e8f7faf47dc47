// Package analytics считает сводку расходов пользователя и кеширует её в Redis.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/trialguard/internal/cache"
	"github.com/magabrotheeeer/trialguard/internal/lib/billing"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

// Repository источник активных подписок пользователя.
type Repository interface {
	ListActiveSubscriptions(ctx context.Context, userUID string) ([]models.Subscription, error)
}

// Cache JSON-кеш сводок.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service отдаёт сводку расходов. cache может быть nil.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, log: log, now: time.Now}
}

// WithClock подменяет источник текущего времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary возвращает сводку по активным подпискам пользователя.
// Ближайшие списания берутся по сохранённым датам, прошедшие даты в окно не попадают.
// Ошибки кеша не фатальны: сводка пересчитывается из базы.
func (s *Service) Summary(ctx context.Context, userUID string) (billing.Summary, error) {
	const op = "analytics.Summary"
	key := cache.AnalyticsKey(userUID)

	if s.cache != nil {
		var cached billing.Summary
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read analytics cache", slog.String("key", key), sl.Err(err))
		}
		if found {
			return cached.WithinWindow(s.now()), nil
		}
	}

	subs, err := s.repo.ListActiveSubscriptions(ctx, userUID)
	if err != nil {
		return billing.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	summary, err := billing.Analyze(subs, s.now())
	if err != nil {
		return billing.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
			s.log.Warn("failed to cache analytics", slog.String("key", key), sl.Err(err))
		}
	}
	return summary, nil
}
