package core

import (
	"testing"
	"time"
)

func TestSummarizeTransactions_Empty(t *testing.T) {
	s := SummarizeTransactions(nil)
	if s.Count != 0 || s.TotalIncomeCents != 0 || s.TotalExpenseCents != 0 || s.BalanceCents != 0 {
		t.Errorf("empty summary = %+v, want all zeros", s)
	}
	if len(s.Categories) != 0 {
		t.Errorf("Categories = %v, want empty", s.Categories)
	}
}

func TestSummarizeTransactions(t *testing.T) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)
	txs := []Transaction{
		NewIncome(100000_00, "зарплата", "fam-1", "u1", date),
		NewExpense(30000_00, CategoryFood, "продукты", "fam-1", "u1", date),
		NewExpense(10000_00, CategoryTransport, "бензин", "fam-1", "u2", date),
		NewExpense(20000_00, CategoryFood, "ресторан", "fam-1", "u1", date),
	}

	s := SummarizeTransactions(txs)

	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	if s.TotalIncomeCents != 100000_00 {
		t.Errorf("TotalIncomeCents = %d, want %d", s.TotalIncomeCents, int64(100000_00))
	}
	if s.TotalExpenseCents != 60000_00 {
		t.Errorf("TotalExpenseCents = %d, want %d", s.TotalExpenseCents, int64(60000_00))
	}
	if s.BalanceCents != 40000_00 {
		t.Errorf("BalanceCents = %d, want %d", s.BalanceCents, int64(40000_00))
	}
	if s.Overspent {
		t.Error("Overspent = true, want false")
	}
	if s.SavingsPercentage != 40 {
		t.Errorf("SavingsPercentage = %v, want 40", s.SavingsPercentage)
	}

	if len(s.Categories) != 2 {
		t.Fatalf("len(Categories) = %d, want 2", len(s.Categories))
	}
	// sorted by amount descending
	if s.Categories[0].Category != CategoryFood || s.Categories[0].AmountCents != 50000_00 {
		t.Errorf("Categories[0] = %+v, want food 50000_00", s.Categories[0])
	}
	if s.Categories[1].Category != CategoryTransport || s.Categories[1].AmountCents != 10000_00 {
		t.Errorf("Categories[1] = %+v, want transport 10000_00", s.Categories[1])
	}
	wantPct := float64(50000_00) / float64(60000_00) * 100
	if s.Categories[0].Percentage != wantPct {
		t.Errorf("Categories[0].Percentage = %v, want %v", s.Categories[0].Percentage, wantPct)
	}
}

func TestSummarizeTransactions_Overspent(t *testing.T) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)
	txs := []Transaction{
		NewIncome(1000_00, "подработка", "fam-1", "u1", date),
		NewExpense(1500_00, CategoryFood, "продукты", "fam-1", "u1", date),
	}

	s := SummarizeTransactions(txs)
	if !s.Overspent {
		t.Error("Overspent = false, want true")
	}
	if s.BalanceCents != -500_00 {
		t.Errorf("BalanceCents = %d, want %d", s.BalanceCents, int64(-500_00))
	}
	if s.SavingsPercentage != -50 {
		t.Errorf("SavingsPercentage = %v, want -50", s.SavingsPercentage)
	}
}
