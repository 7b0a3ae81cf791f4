package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal represents an amount aggregated by expense category.
type CategoryTotal struct {
	Category ExpenseCategory
	Total    decimal.Decimal
}

// Period is an inclusive calendar-date range.
type Period struct {
	From Date
	To   Date
}

func YearPeriod(year int) Period {
	return Period{From: NewDate(year, 1, 1), To: NewDate(year, 12, 31)}
}

func MonthPeriod(year, month int) Period {
	first := NewDate(year, month, 1)
	return Period{From: first, To: Date{Time: first.AddDate(0, 1, -1)}}
}

// AllTime covers every date a store can hold.
func AllTime() Period {
	return Period{From: NewDate(1, 1, 1), To: NewDate(9999, 12, 31)}
}

// QuarterOf returns the calendar quarter (1-4) of t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// DashboardSummary is the landing-page overview for a user.
type DashboardSummary struct {
	TotalEarnings      decimal.Decimal
	MonthlyEarnings    decimal.Decimal
	ConnectedPlatforms []string
}
