package core

// Totals is the income/expense aggregate over the active ledger.
type Totals struct {
	Income  Money
	Expense Money
}

// Balance is income minus expense.
func (t Totals) Balance() Money {
	return Money{Cents: t.Income.Cents - t.Expense.Cents}
}

// CategoryAmount is an expense sum for one category.
type CategoryAmount struct {
	Category string
	Amount   Money
}

// BudgetStatus is the spend-vs-budget picture for one category and month.
// UsagePercent is integer-rounded and 0 when no budget is set.
type BudgetStatus struct {
	Spent        Money
	Budget       Money
	Remaining    Money
	UsagePercent int
	OverBudget   bool
}
