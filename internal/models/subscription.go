// Package models содержит доменные структуры, описывающие подписку,
// а также вспомогательные типы для работы с данными из внешних источников (например, JSON-запросы).
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы подписки.
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusPaused   = "paused"
)

// Subscription представляет собой основную модель подписки,
// используемую в бизнес-логике и хранилище.
// TrialEndDate и NextBillingDate могут быть nil, если даты неизвестны.
type Subscription struct {
	ID              int64           `json:"id"`
	UserUID         string          `json:"user_uid"`
	Name            string          `json:"name"`          // Название сервиса
	Price           decimal.Decimal `json:"price"`         // Цена за один период оплаты
	BillingCycle    string          `json:"billing_cycle"` // MONTHLY, YEARLY, QUARTERLY, WEEKLY, BIWEEKLY
	Category        *string         `json:"category,omitempty"`
	TrialEndDate    *time.Time      `json:"trial_end_date,omitempty"`
	NextBillingDate *time.Time      `json:"next_billing_date,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DummySubscription используется для приёма данных из JSON-запроса,
// прежде чем конвертировать их в Subscription.
// Даты приходят строками в формате RFC3339 или 2006-01-02.
type DummySubscription struct {
	Name            string `json:"name" validate:"required,max=120"`
	Price           string `json:"price" validate:"required,numeric"`
	BillingCycle    string `json:"billing_cycle" validate:"required"`
	Category        string `json:"category,omitempty" validate:"omitempty,max=60"`
	TrialEndDate    string `json:"trial_end_date,omitempty"`
	NextBillingDate string `json:"next_billing_date,omitempty"`
}
