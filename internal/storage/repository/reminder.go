package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/trialguard/internal/models"
)

// ClaimParams параметры захвата напоминаний одним прогоном рассылки.
type ClaimParams struct {
	From       *time.Time // нижняя граница даты включительно, nil без границы
	To         time.Time  // верхняя граница даты, не включается
	Token      string     // идентификатор прогона
	Now        time.Time
	StaleAfter time.Duration // захват старше этого считается брошенным
	Limit      int
}

// ClaimDueReminders одним запросом переводит неотправленные напоминания окна
// в статус dispatching с токеном прогона и возвращает их вместе с данными
// подписки и владельца. Берутся только напоминания активных подписок.
// Строки, уже захваченные параллельным прогоном, пропускаются, брошенные
// захваты подбираются повторно.
func (s *Storage) ClaimDueReminders(ctx context.Context, p ClaimParams) ([]models.DueReminder, error) {
	const op = "storage.ClaimDueReminders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var from sql.NullTime
	if p.From != nil {
		from = sql.NullTime{Time: *p.From, Valid: true}
	}

	query := `WITH due AS (
			      SELECT r.id
			      FROM reminders r
			      WHERE r.sent = FALSE
			        AND r.date < $1
			        AND ($2::timestamptz IS NULL OR r.date >= $2::timestamptz)
			        AND (r.status = 'pending' OR (r.status = 'dispatching' AND r.claimed_at < $3))
			        AND EXISTS (
			            SELECT 1 FROM subscriptions s
			            WHERE s.id = r.subscription_id AND s.status = 'active'
			        )
			      ORDER BY r.date, r.id
			      LIMIT $4
			      FOR UPDATE SKIP LOCKED
			  ), claimed AS (
			      UPDATE reminders r
			      SET status = 'dispatching', claim_token = $5, claimed_at = $6
			      FROM due
			      WHERE r.id = due.id
			      RETURNING r.id, r.subscription_id, r.user_uid, r.date, r.claim_token
			  )
			  SELECT c.id, c.subscription_id, c.user_uid, c.date, c.claim_token,
			         u.email, u.username, s.name, s.price, s.billing_cycle, s.trial_end_date
			  FROM claimed c
			  JOIN subscriptions s ON s.id = c.subscription_id
			  JOIN users u ON u.uid = c.user_uid
			  ORDER BY c.date, c.id`
	rows, err := s.DB.QueryContext(ctx, query,
		p.To, from, p.Now.Add(-p.StaleAfter), p.Limit, p.Token, p.Now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.DueReminder, 0)
	for rows.Next() {
		var (
			d        models.DueReminder
			trialEnd sql.NullTime
		)
		if err = rows.Scan(&d.ID, &d.SubscriptionID, &d.UserUID, &d.Date, &d.ClaimToken,
			&d.Email, &d.Username, &d.Name, &d.Price, &d.BillingCycle, &trialEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.TrialEndDate = nullTime(&trialEnd)
		result = append(result, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CompleteReminder в одной транзакции отмечает напоминание отправленным и
// создаёт уведомление. Если захват потерян, ничего не меняется и
// возвращается ErrClaimLost.
func (s *Storage) CompleteReminder(ctx context.Context, id int64, token string, n models.Notification) (models.Notification, error) {
	const op = "storage.CompleteReminder"
	select {
	case <-ctx.Done():
		return models.Notification{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE reminders
				  SET sent = TRUE, status = 'sent', sent_at = NOW(), claim_token = NULL
				  WHERE id = $1 AND claim_token = $2 AND status = 'dispatching'`, id, token)
		if err != nil {
			return err
		}
		if err := rowsAffectedOrNotFound(res, ErrClaimLost); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `INSERT INTO notifications (user_uid, type, title, message)
				  VALUES ($1, $2, $3, $4)
				  RETURNING id, read, created_at`, n.UserUID, n.Type, n.Title, n.Message).
			Scan(&n.ID, &n.Read, &n.CreatedAt)
	})
	if err != nil {
		return models.Notification{}, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ReleaseReminder возвращает захваченное напоминание в ожидание, чтобы его
// подобрал следующий прогон.
func (s *Storage) ReleaseReminder(ctx context.Context, id int64, token string) error {
	const op = "storage.ReleaseReminder"

	res, err := s.DB.ExecContext(ctx, `UPDATE reminders
			  SET status = 'pending', claim_token = NULL, claimed_at = NULL
			  WHERE id = $1 AND claim_token = $2 AND status = 'dispatching'`, id, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rowsAffectedOrNotFound(res, ErrClaimLost); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateReminder создаёт ручное напоминание для активной подписки пользователя.
// Для чужой, несуществующей или неактивной подписки возвращает ErrNotFound.
func (s *Storage) CreateReminder(ctx context.Context, userUID string, subscriptionID int64, date time.Time) (*models.Reminder, error) {
	const op = "storage.CreateReminder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	r := &models.Reminder{SubscriptionID: subscriptionID, UserUID: userUID, Date: date}
	query := `INSERT INTO reminders (subscription_id, user_uid, date)
			  SELECT id, user_uid, $3 FROM subscriptions
			  WHERE id = $1 AND user_uid = $2 AND status = 'active'
			  RETURNING id, sent, status, auto`
	err := s.DB.QueryRowContext(ctx, query, subscriptionID, userUID, date).
		Scan(&r.ID, &r.Sent, &r.Status, &r.Auto)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// ListReminders возвращает напоминания пользователя, ближайшие первыми.
func (s *Storage) ListReminders(ctx context.Context, userUID string) ([]models.Reminder, error) {
	const op = "storage.ListReminders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, subscription_id, user_uid, date, sent, status, auto, sent_at
			  FROM reminders
			  WHERE user_uid = $1
			  ORDER BY date, id`, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Reminder, 0)
	for rows.Next() {
		var (
			r      models.Reminder
			sentAt sql.NullTime
		)
		if err = rows.Scan(&r.ID, &r.SubscriptionID, &r.UserUID, &r.Date, &r.Sent, &r.Status, &r.Auto, &sentAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r.SentAt = nullTime(&sentAt)
		result = append(result, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteReminder удаляет ожидающее напоминание пользователя. Отправленные
// и захваченные рассылкой напоминания не удаляются.
func (s *Storage) DeleteReminder(ctx context.Context, userUID string, id int64) error {
	const op = "storage.DeleteReminder"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM reminders
			  WHERE id = $1 AND user_uid = $2 AND status = 'pending'`, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rowsAffectedOrNotFound(res, ErrNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
