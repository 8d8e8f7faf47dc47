package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/trialguard/internal/models"
)

// ListNotifications возвращает уведомления пользователя, новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	const op = "storage.ListNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, type, title, message, read, created_at
			  FROM notifications
			  WHERE user_uid = $1 AND (NOT $2 OR read = FALSE)
			  ORDER BY created_at DESC, id DESC
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, userUID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err = rows.Scan(&n.ID, &n.UserUID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *Storage) CountUnread(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountUnread"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications
			  WHERE user_uid = $1 AND read = FALSE`, userUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// MarkNotificationRead отмечает уведомление прочитанным. Повторная отметка не ошибка.
func (s *Storage) MarkNotificationRead(ctx context.Context, userUID string, id int64) error {
	const op = "storage.MarkNotificationRead"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE notifications SET read = TRUE
			  WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rowsAffectedOrNotFound(res, ErrNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkAllNotificationsRead отмечает прочитанными все уведомления пользователя
// и возвращает число изменённых.
func (s *Storage) MarkAllNotificationsRead(ctx context.Context, userUID string) (int64, error) {
	const op = "storage.MarkAllNotificationsRead"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE notifications SET read = TRUE
			  WHERE user_uid = $1 AND read = FALSE`, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// DeleteNotification удаляет уведомление пользователя.
func (s *Storage) DeleteNotification(ctx context.Context, userUID string, id int64) error {
	const op = "storage.DeleteNotification"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rowsAffectedOrNotFound(res, ErrNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
