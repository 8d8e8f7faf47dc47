package models

import "time"

// NotificationTypeReminder тип уведомления, созданного рассылкой напоминаний.
const NotificationTypeReminder = "reminder"

// Notification уведомление внутри приложения. Живёт независимо от напоминания.
type Notification struct {
	ID        int64     `json:"id"`
	UserUID   string    `json:"user_uid"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationCreated событие о новом уведомлении, публикуется в брокер.
type NotificationCreated struct {
	NotificationID int64     `json:"notification_id"`
	UserUID        string    `json:"user_uid"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

// DispatchRequest запрос оператора на внеплановую рассылку напоминаний.
type DispatchRequest struct {
	RequestedBy string    `json:"requested_by"`
	Mode        string    `json:"mode"`
	RequestedAt time.Time `json:"requested_at"`
}
