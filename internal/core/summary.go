package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthSummary is the dashboard aggregate for one calendar month.
type MonthSummary struct {
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Balance      decimal.Decimal
	IncomeTrend  string
	ExpenseTrend string
}

// CategorySlice is one slice of the expense donut chart.
type CategorySlice struct {
	Name  string
	Value decimal.Decimal
	Color string
}

// MonthlyFlow is one bucket of the six-month income/expense series.
type MonthlyFlow struct {
	Label   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// DefaultCategoryColor is used for any category key outside the fixed map.
const DefaultCategoryColor = "#94a3b8"

var categoryColors = map[string]string{
	"mercado":  "#0ea5e9",
	"lazer":    "#8b5cf6",
	"veiculo":  "#ec4899",
	"casa":     "#f59e0b",
	"educacao": "#10b981",
	"outros":   "#94a3b8",
}

// monthLabels are pt-BR month abbreviations, indexed by time.Month-1.
var monthLabels = [12]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// SumByKind adds up the amounts of all transactions of the given kind.
func SumByKind(txs []Transaction, kind TransactionKind) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.Kind == kind {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Trend formats the percentage change between a previous and current total,
// rounded to the nearest whole percent and sign-prefixed. A zero previous
// total yields "+100%" when the current total is positive and "0%"
// otherwise; the asymmetry is deliberate and mirrors the dashboard's
// historical behavior.
func Trend(current, previous decimal.Decimal) string {
	if previous.IsZero() {
		if current.GreaterThan(decimal.Zero) {
			return "+100%"
		}
		return "0%"
	}
	ratio, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	percent := int(math.Round(ratio))
	if percent > 0 {
		return fmt.Sprintf("+%d%%", percent)
	}
	return fmt.Sprintf("%d%%", percent)
}

// Summarize computes income/expense totals, balance and month-over-month
// trends. The invariant balance = income − expense holds exactly.
func Summarize(current, previous []Transaction) MonthSummary {
	income := SumByKind(current, Income)
	expense := SumByKind(current, Expense)
	return MonthSummary{
		Income:       income,
		Expense:      expense,
		Balance:      income.Sub(expense),
		IncomeTrend:  Trend(income, SumByKind(previous, Income)),
		ExpenseTrend: Trend(expense, SumByKind(previous, Expense)),
	}
}

// ExpensesByCategory groups expense amounts by case-normalized category key
// and pairs each with its display color. Slices are ordered by descending
// value, name ascending on ties, so chart output is deterministic.
func ExpensesByCategory(txs []Transaction) []CategorySlice {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Kind != Expense {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(t.Category))
		sums[key] = sums[key].Add(t.Amount)
	}

	slices := make([]CategorySlice, 0, len(sums))
	for name, value := range sums {
		color, ok := categoryColors[name]
		if !ok {
			color = DefaultCategoryColor
		}
		slices = append(slices, CategorySlice{Name: name, Value: value, Color: color})
	}
	sort.Slice(slices, func(i, j int) bool {
		if !slices[i].Value.Equal(slices[j].Value) {
			return slices[i].Value.GreaterThan(slices[j].Value)
		}
		return slices[i].Name < slices[j].Name
	})
	return slices
}

// SixMonthSeries buckets transactions into the six calendar months ending at
// the month of ref, oldest first. Transactions outside that range are
// ignored.
func SixMonthSeries(txs []Transaction, ref time.Time) []MonthlyFlow {
	series := make([]MonthlyFlow, 0, 6)
	for i := 5; i >= 0; i-- {
		bucket := time.Date(ref.Year(), ref.Month()-time.Month(i), 1, 0, 0, 0, 0, ref.Location())
		flow := MonthlyFlow{Label: monthLabels[bucket.Month()-1]}
		for _, t := range txs {
			if t.Date.Year() != bucket.Year() || t.Date.Month() != bucket.Month() {
				continue
			}
			switch t.Kind {
			case Income:
				flow.Income = flow.Income.Add(t.Amount)
			case Expense:
				flow.Expense = flow.Expense.Add(t.Amount)
			}
		}
		series = append(series, flow)
	}
	return series
}

// MonthRange returns the inclusive start and end instants of the calendar
// month containing ref.
func MonthRange(ref time.Time) (time.Time, time.Time) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
