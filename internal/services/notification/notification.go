// Package notification управляет уведомлениями пользователя внутри приложения.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/trialguard/internal/models"
)

// Ограничения пагинации списка уведомлений.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Repository хранилище уведомлений.
type Repository interface {
	ListNotifications(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userUID string) (int, error)
	MarkNotificationRead(ctx context.Context, userUID string, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userUID string) (int64, error)
	DeleteNotification(ctx context.Context, userUID string, id int64) error
}

// Service операции над уведомлениями пользователя.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List возвращает страницу уведомлений, новые первыми.
func (s *Service) List(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	const op = "notification.List"

	limit, offset = clampPage(limit, offset)
	list, err := s.repo.ListNotifications(ctx, userUID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UnreadCount возвращает число непрочитанных уведомлений.
func (s *Service) UnreadCount(ctx context.Context, userUID string) (int, error) {
	const op = "notification.UnreadCount"

	n, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// MarkRead отмечает одно уведомление прочитанным.
func (s *Service) MarkRead(ctx context.Context, userUID string, id int64) error {
	const op = "notification.MarkRead"

	if err := s.repo.MarkNotificationRead(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkAllRead отмечает прочитанными все уведомления и возвращает их число.
func (s *Service) MarkAllRead(ctx context.Context, userUID string) (int64, error) {
	const op = "notification.MarkAllRead"

	n, err := s.repo.MarkAllNotificationsRead(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("notifications marked read", slog.String("user_uid", userUID), slog.Int64("count", n))
	return n, nil
}

// Delete удаляет уведомление.
func (s *Service) Delete(ctx context.Context, userUID string, id int64) error {
	const op = "notification.Delete"

	if err := s.repo.DeleteNotification(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
