package dispatcher

import (
	"fmt"
	"strings"
	"time"
)

// Mode выбирает окно дат, которое рассылка считает наступившим.
type Mode string

const (
	// ModeOverdue все неотправленные напоминания с датой до конца сегодняшних суток.
	ModeOverdue Mode = "overdue"
	// ModeToday только напоминания на сегодняшние сутки.
	ModeToday Mode = "today"
)

// ParseMode разбирает режим без учёта регистра. Пустая строка означает ModeOverdue.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeOverdue, nil
	case ModeOverdue, ModeToday:
		return m, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q", s)
	}
}

// Bounds возвращает полуинтервал дат [from, to). Сутки считаются в поясе loc,
// from == nil означает отсутствие нижней границы.
func (m Mode) Bounds(now time.Time, loc *time.Location) (*time.Time, time.Time) {
	local := now.In(loc)
	startOfToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)

	if m == ModeToday {
		return &startOfToday, startOfTomorrow
	}
	return nil, startOfTomorrow
}
