package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
)

// ErrReject сообщение невозможно обработать (битый JSON и т.п.), возвращать
// его в очередь бессмысленно.
var ErrReject = errors.New("message rejected")

// ConsumerMessage читает очередь и передаёт тела сообщений handler, не более
// workers одновременно. Успех подтверждается Ack, ошибка возвращает сообщение
// в очередь, ErrReject отбрасывает его. Возвращает канал, который закрывается,
// когда все обработчики завершились после отмены ctx или закрытия канала.
func ConsumerMessage(
	ctx context.Context,
	ch *amqp.Channel,
	queueName string,
	workers int,
	log *slog.Logger,
	handler func(context.Context, []byte) error,
) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	if workers < 1 {
		workers = 1
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	done := make(chan struct{})
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	go func() {
		defer close(done)
		defer wg.Wait()
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				wg.Add(1)
				go func(d amqp.Delivery) {
					defer wg.Done()
					defer func() { <-sem }()
					settle(ctx, log, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done, nil
}

func settle(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler func(context.Context, []byte) error) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrReject):
		log.Warn("message rejected", sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Error("message handler failed, requeue", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
