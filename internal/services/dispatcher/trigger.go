package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/trialguard/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/trialguard/internal/models"
)

// ErrNoBroker брокер не настроен, ручной запуск недоступен.
var ErrNoBroker = errors.New("message broker is not configured")

// Trigger отправляет запрос на внеплановую рассылку через брокер.
type Trigger struct {
	publisher Publisher
	now       func() time.Time
}

// NewTrigger создаёт Trigger. nil publisher означает, что брокер не настроен.
func NewTrigger(publisher Publisher) *Trigger {
	return &Trigger{publisher: publisher, now: time.Now}
}

// Request публикует запрос на рассылку в режиме mode от имени requestedBy.
func (t *Trigger) Request(ctx context.Context, requestedBy string, mode Mode) (models.DispatchRequest, error) {
	const op = "dispatcher.Request"
	if t.publisher == nil {
		return models.DispatchRequest{}, fmt.Errorf("%s: %w", op, ErrNoBroker)
	}

	req := models.DispatchRequest{
		RequestedBy: requestedBy,
		Mode:        string(mode),
		RequestedAt: t.now().UTC(),
	}
	if err := t.publisher.Publish(ctx, rabbitmq.DispatchRoutingKey, req); err != nil {
		return models.DispatchRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

// DecodeRequest разбирает тело сообщения с запросом на рассылку.
func DecodeRequest(body []byte) (models.DispatchRequest, Mode, error) {
	const op = "dispatcher.DecodeRequest"

	var req models.DispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return models.DispatchRequest{}, "", fmt.Errorf("%s: %w", op, err)
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return models.DispatchRequest{}, "", fmt.Errorf("%s: %w", op, err)
	}
	return req, mode, nil
}
