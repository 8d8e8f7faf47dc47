// Package smtp открывает аутентифицированные сессии с почтовым сервером.
package smtp

import (
	"context"
	"io"
)

// Client минимальный набор команд SMTP-сессии, нужный для отправки письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает сессию, готовую к отправке.
type Dialer interface {
	Dial(ctx context.Context) (Client, error)
	From() string
}
