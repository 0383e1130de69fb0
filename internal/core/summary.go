package core

// CategoryAmount is an expense sum aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// DayPoint is one entry of a daily trend series.
type DayPoint struct {
	Date    Date
	Label   string // "Jan 02"
	Income  Money
	Expense Money
}

// MonthPoint is one entry of a monthly expense trend series.
type MonthPoint struct {
	Label   string // "Jan 2006"
	Expense Money
}

// Summary is the dashboard figure set derived from one user's ledger.
type Summary struct {
	TotalIncome       Money
	TotalExpenses     Money
	Balance           Money
	MonthlyIncome     Money
	MonthlyExpenses   Money
	WeeklyIncome      Money
	WeeklyExpenses    Money
	DailyAverage      Money
	CategoryTotals    map[string]Money
	DailyTrend        []DayPoint
	MonthlyTrend      []MonthPoint
	Budget            Money
	BudgetUtilization float64 // percent, 0 when no budget is set
}
