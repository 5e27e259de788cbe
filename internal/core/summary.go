package core

import "sort"

// CategoryAmount is one expense category's share of a period.
type CategoryAmount struct {
	Category    Category
	AmountCents int64
	Percentage  float64
}

// TransactionSummary aggregates a set of transactions for reports.
type TransactionSummary struct {
	Count             int
	TotalIncomeCents  int64
	TotalExpenseCents int64
	BalanceCents      int64
	Categories        []CategoryAmount // expenses only, largest first
	SavingsPercentage float64          // balance as a share of income
	Overspent         bool
}

// SummarizeTransactions computes period totals, the per-category expense
// breakdown and the savings rate over the given transactions.
func SummarizeTransactions(txs []Transaction) TransactionSummary {
	s := TransactionSummary{Count: len(txs)}
	byCategory := make(map[Category]int64)

	for _, tx := range txs {
		switch tx.Type {
		case TypeIncome:
			s.TotalIncomeCents += tx.AmountCents
		case TypeExpense:
			s.TotalExpenseCents += tx.AmountCents
			byCategory[tx.Category] += tx.AmountCents
		}
	}
	s.BalanceCents = s.TotalIncomeCents - s.TotalExpenseCents
	s.Overspent = s.BalanceCents < 0
	if s.TotalIncomeCents > 0 {
		s.SavingsPercentage = float64(s.BalanceCents) / float64(s.TotalIncomeCents) * 100
	}

	for category, amount := range byCategory {
		ca := CategoryAmount{Category: category, AmountCents: amount}
		if s.TotalExpenseCents > 0 {
			ca.Percentage = float64(amount) / float64(s.TotalExpenseCents) * 100
		}
		s.Categories = append(s.Categories, ca)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if s.Categories[i].AmountCents != s.Categories[j].AmountCents {
			return s.Categories[i].AmountCents > s.Categories[j].AmountCents
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	return s
}
