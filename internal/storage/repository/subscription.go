package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/trialguard/internal/models"
)

const subscriptionColumns = `id, user_uid, name, price, billing_cycle, category,
	trial_end_date, next_billing_date, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub                   models.Subscription
		category              sql.NullString
		trialEnd, nextBilling sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Name, &sub.Price, &sub.BillingCycle, &category,
		&trialEnd, &nextBilling, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if category.Valid {
		sub.Category = &category.String
	}
	sub.TrialEndDate = nullTime(&trialEnd)
	sub.NextBillingDate = nullTime(&nextBilling)
	return &sub, nil
}

// CreateSubscription сохраняет подписку и, если autoReminder задан, её
// автоматическое напоминание. Всё в одной транзакции.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription, autoReminder *time.Time) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO subscriptions (user_uid, name, price, billing_cycle, category,
				      trial_end_date, next_billing_date, status)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				  RETURNING id`
		if err := tx.QueryRowContext(ctx, query,
			sub.UserUID, sub.Name, sub.Price, sub.BillingCycle, sub.Category,
			sub.TrialEndDate, sub.NextBillingDate, sub.Status).Scan(&newID); err != nil {
			return err
		}
		return replaceAutoReminder(ctx, tx, newID, sub.UserUID, autoReminder)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку пользователя по ID.
func (s *Storage) GetSubscription(ctx context.Context, userUID string, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND user_uid = $2`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscription перезаписывает изменяемые поля подписки. При reschedule
// неотправленное автоматическое напоминание пересоздаётся, autoReminder == nil
// только удаляет его. Без reschedule напоминания не трогаются.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription, reschedule bool, autoReminder *time.Time) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE subscriptions
				  SET name = $1, price = $2, billing_cycle = $3, category = $4,
				      trial_end_date = $5, next_billing_date = $6, status = $7, updated_at = NOW()
				  WHERE id = $8 AND user_uid = $9`
		res, err := tx.ExecContext(ctx, query,
			sub.Name, sub.Price, sub.BillingCycle, sub.Category,
			sub.TrialEndDate, sub.NextBillingDate, sub.Status, sub.ID, sub.UserUID)
		if err != nil {
			return err
		}
		if err := rowsAffectedOrNotFound(res, ErrNotFound); err != nil {
			return err
		}
		if !reschedule {
			return nil
		}
		return replaceAutoReminder(ctx, tx, sub.ID, sub.UserUID, autoReminder)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// replaceAutoReminder удаляет ожидающее автоматическое напоминание подписки
// и, если date задан, ставит новое. Захваченное рассылкой напоминание не трогается.
func replaceAutoReminder(ctx context.Context, tx *sql.Tx, subscriptionID int64, userUID string, date *time.Time) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders
			  WHERE subscription_id = $1 AND auto AND status = 'pending'`, subscriptionID); err != nil {
		return err
	}
	if date == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO reminders (subscription_id, user_uid, date, auto)
			  VALUES ($1, $2, $3, TRUE)
			  ON CONFLICT DO NOTHING`, subscriptionID, userUID, *date)
	return err
}

// DeleteSubscription удаляет подписку пользователя вместе с её напоминаниями.
func (s *Storage) DeleteSubscription(ctx context.Context, userUID string, id int64) error {
	const op = "storage.DeleteSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rowsAffectedOrNotFound(res, ErrNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CancelSubscription переводит подписку в статус canceled и удаляет
// все её неотправленные напоминания, включая захваченные рассылкой.
func (s *Storage) CancelSubscription(ctx context.Context, userUID string, id int64) error {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE subscriptions
				  SET status = $1, updated_at = NOW()
				  WHERE id = $2 AND user_uid = $3`, models.StatusCanceled, id, userUID)
		if err != nil {
			return err
		}
		if err := rowsAffectedOrNotFound(res, ErrNotFound); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM reminders
				  WHERE subscription_id = $1 AND NOT sent`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptions возвращает подписки пользователя с пагинацией.
func (s *Storage) ListSubscriptions(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			  ORDER BY id
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListActiveSubscriptions возвращает все активные подписки пользователя
// в порядке создания. Используется для аналитики.
func (s *Storage) ListActiveSubscriptions(ctx context.Context, userUID string) ([]models.Subscription, error) {
	const op = "storage.ListActiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1 AND status = $2
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, userUID, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
