// Package sender отправляет письма через SMTP.
//
// Почта считается необязательной зависимостью: если SMTP не настроен,
// Send возвращает ErrUnavailable, и вызывающий сам решает, что делать дальше.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/lib/smtp"
)

// ErrUnavailable почта не настроена.
var ErrUnavailable = errors.New("mailer unavailable")

// Message письмо с текстовой и HTML-версией.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer отправляет письма через Dialer.
type Mailer struct {
	dialer smtp.Dialer
	log    *slog.Logger
}

// NewMailer создаёт Mailer. nil dialer означает, что почта недоступна.
func NewMailer(dialer smtp.Dialer, log *slog.Logger) *Mailer {
	return &Mailer{dialer: dialer, log: log}
}

// Available сообщает, настроена ли почта.
func (m *Mailer) Available() bool {
	return m.dialer != nil
}

// Send отправляет одно письмо. Время ожидания ограничено дедлайном ctx.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	const op = "sender.Send"
	if m.dialer == nil {
		return ErrUnavailable
	}
	if msg.To == "" {
		return fmt.Errorf("%s: empty recipient", op)
	}

	from := m.dialer.From()
	body, err := Compose(from, msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := m.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		m.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		m.log.Error("failed to set RCPT TO", slog.String("recipient", msg.To), sl.Err(err))
		return fmt.Errorf("%s: rcpt to: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(body); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		m.log.Warn("failed to quit SMTP session", sl.Err(err))
	}

	m.log.Debug("email sent", slog.String("to", msg.To))
	return nil
}
