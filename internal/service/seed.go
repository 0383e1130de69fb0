package service

import "financeflow/internal/core"

// defaultBudgetCents is the monthly budget a fresh account starts with.
const defaultBudgetCents = 50000_00

// starterTransactions builds the sample ledger a first-time user starts
// with: one salary entry for today and five expenses over the prior five
// days, newest first.
func starterTransactions(today core.Date) []core.Transaction {
	entries := []struct {
		daysAgo  int
		kind     core.Kind
		category string
		cents    int64
		note     string
	}{
		{0, core.Income, "Income", 45000_00, "Monthly salary"},
		{1, core.Expense, "Food & Dining", 350_00, "Restaurant dinner"},
		{2, core.Expense, "Transportation", 120_00, "Uber ride"},
		{3, core.Expense, "Shopping", 2500_00, "Grocery shopping"},
		{4, core.Expense, "Entertainment", 800_00, "Movie night"},
		{5, core.Expense, "Bills & Utilities", 1500_00, "Internet bill"},
	}

	txns := make([]core.Transaction, 0, len(entries))
	for _, e := range entries {
		txns = append(txns, core.Transaction{
			Date:     today.AddDays(-e.daysAgo),
			Kind:     e.kind,
			Category: e.category,
			Amount:   core.Money{Cents: e.cents},
			Note:     e.note,
		})
	}
	return txns
}
