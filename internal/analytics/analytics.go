// Package analytics derives dashboard figures from an in-memory transaction
// collection. Every function is pure: no I/O, no shared state, all sums in
// integer cents.
package analytics

import (
	"time"

	"financeflow/internal/core"
)

// CategoryTotals sums expense amounts by category. Income entries are
// excluded; an all-income or empty collection yields an empty map.
func CategoryTotals(txns []core.Transaction) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, t := range txns {
		if t.Kind != core.Expense {
			continue
		}
		m := totals[t.Category]
		m.Cents += t.Amount.Cents
		totals[t.Category] = m
	}
	return totals
}

// WindowSum totals amounts of the given kind with dates in [start, end],
// both bounds inclusive.
func WindowSum(txns []core.Transaction, kind core.Kind, start, end core.Date) core.Money {
	var sum int64
	for _, t := range txns {
		if t.Kind != kind {
			continue
		}
		if t.Date.Before(start.Time) || t.Date.After(end.Time) {
			continue
		}
		sum += t.Amount.Cents
	}
	return core.Money{Cents: sum}
}

// MonthlyIncome sums income from the first day of today's month through
// today, inclusive.
func MonthlyIncome(txns []core.Transaction, today core.Date) core.Money {
	return WindowSum(txns, core.Income, today.MonthStart(), today)
}

// MonthlyExpenses sums expenses from the first day of today's month through
// today, inclusive.
func MonthlyExpenses(txns []core.Transaction, today core.Date) core.Money {
	return WindowSum(txns, core.Expense, today.MonthStart(), today)
}

// weeklySum uses a strict "after" lower bound: entries exactly seven days
// old are excluded while the monthly window includes its first day. The
// inconsistency is deliberate; both behaviors are kept as the source
// system defined them.
func weeklySum(txns []core.Transaction, kind core.Kind, today core.Date) core.Money {
	weekStart := today.AddDays(-7)
	var sum int64
	for _, t := range txns {
		if t.Kind != kind {
			continue
		}
		if !t.Date.After(weekStart.Time) || t.Date.After(today.Time) {
			continue
		}
		sum += t.Amount.Cents
	}
	return core.Money{Cents: sum}
}

// WeeklyIncome sums income strictly after today minus seven days.
func WeeklyIncome(txns []core.Transaction, today core.Date) core.Money {
	return weeklySum(txns, core.Income, today)
}

// WeeklyExpenses sums expenses strictly after today minus seven days.
func WeeklyExpenses(txns []core.Transaction, today core.Date) core.Money {
	return weeklySum(txns, core.Expense, today)
}

// DailyAverageExpense divides the month-to-date expenses by the number of
// elapsed days in the month, today included. Returns zero for a
// non-positive day count.
func DailyAverageExpense(txns []core.Transaction, today core.Date) core.Money {
	days := int64(today.Day())
	if days <= 0 {
		return core.Money{}
	}
	cents := MonthlyExpenses(txns, today).Cents
	// Half-up rounding on the division
	return core.Money{Cents: (cents + days/2) / days}
}

// DailyTrendSeries returns per-day income and expense sums for the last
// days calendar days ending at today, oldest first.
func DailyTrendSeries(txns []core.Transaction, today core.Date, days int) []core.DayPoint {
	points := make([]core.DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDays(-i)
		var income, expense int64
		for _, t := range txns {
			if !t.Date.Equal(day.Time) {
				continue
			}
			switch t.Kind {
			case core.Income:
				income += t.Amount.Cents
			case core.Expense:
				expense += t.Amount.Cents
			}
		}
		points = append(points, core.DayPoint{
			Date:    day,
			Label:   day.Format("Jan 02"),
			Income:  core.Money{Cents: income},
			Expense: core.Money{Cents: expense},
		})
	}
	return points
}

// MonthlyTrendSeries returns expense sums for the last months calendar
// months ending at today's month, oldest first. Each month's window spans
// its real first-to-last-day bounds, so variable month lengths and year
// rollover are handled by the calendar itself.
func MonthlyTrendSeries(txns []core.Transaction, today core.Date, months int) []core.MonthPoint {
	points := make([]core.MonthPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := time.Date(today.Year(), today.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		sum := WindowSum(txns, core.Expense, core.Date{Time: start}, core.Date{Time: end})
		points = append(points, core.MonthPoint{
			Label:   start.Format("Jan 2006"),
			Expense: sum,
		})
	}
	return points
}

// BudgetUtilization returns monthly expenses as a percentage of the budget.
// Callers must reject a non-positive budget before calling; the division is
// performed as given.
func BudgetUtilization(monthlyExpenses, budget core.Money) float64 {
	return 100 * float64(monthlyExpenses.Cents) / float64(budget.Cents)
}

// Totals sums the whole collection into income, expense and balance
// figures.
func Totals(txns []core.Transaction) (income, expenses, balance core.Money) {
	for _, t := range txns {
		switch t.Kind {
		case core.Income:
			income.Cents += t.Amount.Cents
		case core.Expense:
			expenses.Cents += t.Amount.Cents
		}
	}
	balance.Cents = income.Cents - expenses.Cents
	return income, expenses, balance
}
