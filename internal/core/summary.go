package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Stats are the running totals shown next to the assistant and dashboard.
type Stats struct {
	TotalIncome   Money
	TotalExpenses Money
	Balance       Money // income - expenses
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Stats      Stats
	ByCategory []CategoryAmount
}

// ComputeStats sums income and expenses over txs.
func ComputeStats(txs []Transaction) Stats {
	var s Stats
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
		case Expense:
			s.TotalExpenses.Cents += t.Amount.Cents
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// ExpenseTotals aggregates expense amounts per category, largest first.
// Ties are broken by name so the order is stable.
func ExpenseTotals(txs []Transaction) []CategoryAmount {
	byCat := map[string]int64{}
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		byCat[t.Category] += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(byCat))
	for name, cents := range byCat {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SpentFor sums the expenses that fall into the budget's category and month.
func SpentFor(b Budget, txs []Transaction) Money {
	var spent int64
	for _, t := range txs {
		if t.Type != Expense || t.Category != b.Category {
			continue
		}
		if t.Date.Year() != b.Year || t.Date.Month() != b.Month {
			continue
		}
		spent += t.Amount.Cents
	}
	return Money{Cents: spent}
}

// WithSpent fills Spent on each budget from txs.
func WithSpent(budgets []Budget, txs []Transaction) []Budget {
	out := make([]Budget, len(budgets))
	for i, b := range budgets {
		b.Spent = SpentFor(b, txs)
		out[i] = b
	}
	return out
}

// Overview builds the month summary from that month's transactions.
func Overview(year, month int, txs []Transaction) MonthOverview {
	return MonthOverview{
		Year:       year,
		Month:      month,
		Stats:      ComputeStats(txs),
		ByCategory: ExpenseTotals(txs),
	}
}
