// Package billing приводит стоимость подписок с разными периодами оплаты
// к месячному эквиваленту и агрегирует расходы по категориям и периодам.
//
// Все функции пакета чистые: никакого ввода-вывода, текущее время передаётся явно.
package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cycle период оплаты подписки.
type Cycle string

// Допустимые периоды оплаты. Множество закрытое.
const (
	Monthly   Cycle = "MONTHLY"
	Yearly    Cycle = "YEARLY"
	Quarterly Cycle = "QUARTERLY"
	Weekly    Cycle = "WEEKLY"
	Biweekly  Cycle = "BIWEEKLY"
)

var (
	// ErrUnknownCycle период оплаты не входит в допустимое множество.
	ErrUnknownCycle = errors.New("unknown billing cycle")
	// ErrInvalidPrice цена должна быть строго больше нуля.
	ErrInvalidPrice = errors.New("price must be greater than zero")
)

var (
	twelve          = decimal.NewFromInt(12)
	three           = decimal.NewFromInt(3)
	weeksPerMonth   = decimal.RequireFromString("4.33")
	biweeksPerMonth = decimal.RequireFromString("2.17")
)

// ParseCycle разбирает период оплаты без учёта регистра.
func ParseCycle(s string) (Cycle, error) {
	c := Cycle(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case Monthly, Yearly, Quarterly, Weekly, Biweekly:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCycle, s)
	}
}

// Label возвращает человекочитаемое название периода.
func (c Cycle) Label() string {
	switch c {
	case Monthly:
		return "Monthly"
	case Yearly:
		return "Yearly"
	case Quarterly:
		return "Quarterly"
	case Weekly:
		return "Weekly"
	case Biweekly:
		return "Bi-weekly"
	default:
		return string(c)
	}
}

// Next возвращает дату следующего списания через один период после t.
func (c Cycle) Next(t time.Time) (time.Time, error) {
	switch c {
	case Monthly:
		return t.AddDate(0, 1, 0), nil
	case Yearly:
		return t.AddDate(1, 0, 0), nil
	case Quarterly:
		return t.AddDate(0, 3, 0), nil
	case Weekly:
		return t.AddDate(0, 0, 7), nil
	case Biweekly:
		return t.AddDate(0, 0, 14), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownCycle, string(c))
	}
}

// RollForward сдвигает дату списания вперёд на целое число периодов,
// пока она не окажется строго позже now.
func (c Cycle) RollForward(date, now time.Time) (time.Time, error) {
	for !date.After(now) {
		next, err := c.Next(date)
		if err != nil {
			return time.Time{}, err
		}
		date = next
	}
	return date, nil
}

// MonthlyEquivalent переводит цену за период в месячный эквивалент.
// Результат не округляется: округление делается на уровне сумм.
func MonthlyEquivalent(price decimal.Decimal, c Cycle) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	switch c {
	case Monthly:
		return price, nil
	case Yearly:
		return price.Div(twelve), nil
	case Quarterly:
		return price.Div(three), nil
	case Weekly:
		return price.Mul(weeksPerMonth), nil
	case Biweekly:
		return price.Mul(biweeksPerMonth), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCycle, string(c))
	}
}

// Round2 округляет сумму до копеек по правилу half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
