// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import "log/slog"

// Err возвращает атрибут "error" с текстом ошибки. Для nil пишет пустую строку,
// чтобы логирование в defer не паниковало.
//
//	log.Error("failed to send reminder", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op атрибут с именем операции в формате "package.Method".
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
