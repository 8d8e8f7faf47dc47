package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// ExchangeName общий direct-обменник сервиса.
const ExchangeName = "notifications"

// Очереди и ключи маршрутизации.
const (
	DispatchQueue      = "reminders.dispatch"
	DispatchRoutingKey = "dispatch"
	CreatedQueue       = "notifications.created"
	CreatedRoutingKey  = "created"
)

// QueueConfig очередь и ключ, с которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Queues топология, которую объявляют оба процесса.
func Queues() []QueueConfig {
	return []QueueConfig{
		{QueueName: DispatchQueue, RoutingKey: DispatchRoutingKey},
		{QueueName: CreatedQueue, RoutingKey: CreatedRoutingKey},
	}
}

// SetupChannel открывает канал, объявляет обменник и привязывает очереди.
// Объявление идемпотентно, его можно выполнять при каждом старте.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: qos: %w", op, err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, ExchangeName, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: bind queue %s with key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
