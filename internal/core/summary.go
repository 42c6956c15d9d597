package core

import "github.com/shopspring/decimal"

// Summary holds income and expense sums over some filter.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// Balance is income minus expense.
func (s Summary) Balance() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}

func (s Summary) HasIncome() bool  { return s.Income.IsPositive() }
func (s Summary) HasExpense() bool { return s.Expense.IsPositive() }
func (s Summary) Empty() bool      { return s.Count == 0 }

// Add returns s with tx folded in.
func (s Summary) Add(tx Transaction) Summary {
	switch tx.Type {
	case Income:
		s.Income = s.Income.Add(tx.Amount)
	case Expense:
		s.Expense = s.Expense.Add(tx.Amount)
	}
	s.Count++
	return s
}
