package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/trialguard/internal/models"
)

// UncategorizedLabel категория подписок без указанной категории.
const UncategorizedLabel = "Uncategorized"

// RenewalWindow горизонт списка ближайших списаний.
const RenewalWindow = 30 * 24 * time.Hour

// Aggregate сумма месячных расходов по группе подписок.
type Aggregate struct {
	Key          string          `json:"name"`
	Count        int             `json:"count"`
	MonthlySpend decimal.Decimal `json:"spend"`
}

// Renewal ближайшее списание. Price исходная цена за период, без пересчёта.
type Renewal struct {
	Name  string          `json:"name"`
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Summary результат аналитики по набору подписок.
type Summary struct {
	TotalMonthlySpend decimal.Decimal `json:"totalMonthlySpend"`
	TotalYearlySpend  decimal.Decimal `json:"totalYearlySpend"`
	ByCategory        []Aggregate     `json:"subscriptionsByCategory"`
	ByBillingCycle    []Aggregate     `json:"subscriptionsByBillingCycle"`
	UpcomingRenewals  []Renewal       `json:"upcomingRenewals"`
}

// group накапливает неокруглённую сумму, округление делается один раз в конце.
type group struct {
	key   string
	count int
	sum   decimal.Decimal
}

type grouper struct {
	order []string
	byKey map[string]*group
}

func newGrouper() *grouper {
	return &grouper{byKey: make(map[string]*group)}
}

func (g *grouper) add(key string, amount decimal.Decimal) {
	gr, ok := g.byKey[key]
	if !ok {
		gr = &group{key: key}
		g.byKey[key] = gr
		g.order = append(g.order, key)
	}
	gr.count++
	gr.sum = gr.sum.Add(amount)
}

func (g *grouper) aggregates() []Aggregate {
	out := make([]Aggregate, 0, len(g.order))
	for _, key := range g.order {
		gr := g.byKey[key]
		out = append(out, Aggregate{Key: gr.key, Count: gr.count, MonthlySpend: Round2(gr.sum)})
	}
	return out
}

// Analyze сворачивает список активных подписок в итоговые суммы,
// группировки по категории и периоду оплаты и список списаний на ближайшие 30 дней.
//
// Подписка с неизвестным периодом или неположительной ценой приводит к ошибке
// валидации: значения по умолчанию не подставляются.
func Analyze(subs []models.Subscription, now time.Time) (Summary, error) {
	const op = "billing.Analyze"

	total := decimal.Zero
	byCategory := newGrouper()
	byCycle := newGrouper()
	renewals := make([]Renewal, 0)

	for _, sub := range subs {
		cycle, err := ParseCycle(sub.BillingCycle)
		if err != nil {
			return Summary{}, fmt.Errorf("%s: subscription %d: %w", op, sub.ID, err)
		}
		monthly, err := MonthlyEquivalent(sub.Price, cycle)
		if err != nil {
			return Summary{}, fmt.Errorf("%s: subscription %d: %w", op, sub.ID, err)
		}

		total = total.Add(monthly)
		byCategory.add(categoryOf(sub), monthly)
		byCycle.add(cycle.Label(), monthly)

		if date := renewalDate(sub); date != nil && inRenewalWindow(*date, now) {
			renewals = append(renewals, Renewal{Name: sub.Name, Date: *date, Price: sub.Price})
		}
	}

	sort.SliceStable(renewals, func(i, j int) bool {
		return renewals[i].Date.Before(renewals[j].Date)
	})

	totalMonthly := Round2(total)
	return Summary{
		TotalMonthlySpend: totalMonthly,
		TotalYearlySpend:  totalMonthly.Mul(twelve),
		ByCategory:        byCategory.aggregates(),
		ByBillingCycle:    byCycle.aggregates(),
		UpcomingRenewals:  renewals,
	}, nil
}

// WithinWindow убирает из сводки списания, выпавшие из окна относительно now.
// Нужна при чтении сводки, посчитанной раньше.
func (s Summary) WithinWindow(now time.Time) Summary {
	renewals := make([]Renewal, 0, len(s.UpcomingRenewals))
	for _, r := range s.UpcomingRenewals {
		if inRenewalWindow(r.Date, now) {
			renewals = append(renewals, r)
		}
	}
	s.UpcomingRenewals = renewals
	return s
}

func inRenewalWindow(date, now time.Time) bool {
	return date.After(now) && !date.After(now.Add(RenewalWindow))
}

func categoryOf(sub models.Subscription) string {
	if sub.Category == nil || strings.TrimSpace(*sub.Category) == "" {
		return UncategorizedLabel
	}
	return *sub.Category
}

// renewalDate дата следующего списания, а при её отсутствии дата окончания триала.
func renewalDate(sub models.Subscription) *time.Time {
	if sub.NextBillingDate != nil {
		return sub.NextBillingDate
	}
	return sub.TrialEndDate
}
