package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Состояния напоминания в процессе рассылки.
const (
	ReminderPending     = "pending"
	ReminderDispatching = "dispatching"
	ReminderSent        = "sent"
)

// Reminder одноразовый триггер уведомления по подписке.
// После Sent=true напоминание больше никогда не выбирается.
type Reminder struct {
	ID             int64      `json:"id"`
	SubscriptionID int64      `json:"subscription_id"`
	UserUID        string     `json:"user_uid"`
	Date           time.Time  `json:"date"`
	Sent           bool       `json:"sent"`
	Status         string     `json:"status"`
	Auto           bool       `json:"auto"` // создано автоматически от даты окончания триала
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// DummyReminder запрос на ручное создание напоминания.
type DummyReminder struct {
	Date string `json:"date" validate:"required"`
}

// DueReminder захваченное для отправки напоминание вместе с данными
// подписки и владельца, нужными для письма и уведомления.
type DueReminder struct {
	ID             int64
	SubscriptionID int64
	UserUID        string
	Date           time.Time
	ClaimToken     string
	Email          string
	Username       string
	Name           string
	Price          decimal.Decimal
	BillingCycle   string
	TrialEndDate   *time.Time
}
