package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jarvis/internal/core"
	"jarvis/internal/ports"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_BudgetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	b, err := core.NewMonthlyBudget(2024, 3, "fam-1", "user-1", 100000_00, "Март")
	if err != nil {
		t.Fatalf("NewMonthlyBudget: %v", err)
	}
	b.SetCategoryLimit(core.CategoryFood, 10000_00)
	b.SetCategoryLimit(core.CategoryTransport, 5000_00)

	if err := s.SaveBudget(ctx, b); err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}

	got, err := s.BudgetByID(ctx, "fam-1", b.ID)
	if err != nil {
		t.Fatalf("BudgetByID: %v", err)
	}
	if got.Name != "Март" || got.IncomePlanCents != 100000_00 {
		t.Errorf("budget = %q/%d, want Март/%d", got.Name, got.IncomePlanCents, 100000_00)
	}
	if len(got.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(got.Categories))
	}
	if got.Categories[core.CategoryFood].LimitCents != 10000_00 {
		t.Errorf("food limit = %d, want %d", got.Categories[core.CategoryFood].LimitCents, 10000_00)
	}

	// Updating spend must replace the category rows, not accumulate them.
	got.Categories[core.CategoryFood].SpentCents = 2500_00
	if err := s.SaveBudget(ctx, got); err != nil {
		t.Fatalf("SaveBudget update: %v", err)
	}
	again, err := s.BudgetByID(ctx, "fam-1", b.ID)
	if err != nil {
		t.Fatalf("BudgetByID after update: %v", err)
	}
	if len(again.Categories) != 2 {
		t.Errorf("categories after update = %d, want 2", len(again.Categories))
	}
	if again.Categories[core.CategoryFood].SpentCents != 2500_00 {
		t.Errorf("food spent = %d, want %d", again.Categories[core.CategoryFood].SpentCents, 2500_00)
	}
}

func TestStore_BudgetForDate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	b, err := core.NewMonthlyBudget(2024, 3, "fam-1", "user-1", 0, "Март")
	if err != nil {
		t.Fatalf("NewMonthlyBudget: %v", err)
	}
	if err := s.SaveBudget(ctx, b); err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}

	inside := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)
	got, err := s.BudgetForDate(ctx, "fam-1", inside)
	if err != nil {
		t.Fatalf("BudgetForDate: %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("BudgetForDate id = %q, want %q", got.ID, b.ID)
	}

	outside := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.Local)
	if _, err := s.BudgetForDate(ctx, "fam-1", outside); err != core.ErrBudgetNotFound {
		t.Errorf("BudgetForDate outside period: err = %v, want ErrBudgetNotFound", err)
	}
	if _, err := s.BudgetForDate(ctx, "fam-2", inside); err != core.ErrBudgetNotFound {
		t.Errorf("BudgetForDate other family: err = %v, want ErrBudgetNotFound", err)
	}
}

func TestStore_Transactions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	day := func(d int) time.Time {
		return time.Date(2024, time.March, d, 12, 0, 0, 0, time.Local)
	}

	mk := func(amount int64, cat core.Category, d int) core.Transaction {
		return core.NewExpense(amount, cat, "тест", "fam-1", "user-1", day(d))
	}

	for _, tx := range []core.Transaction{
		mk(1500_00, core.CategoryFood, 3),
		mk(700_00, core.CategoryTransport, 10),
		mk(2000_00, core.CategoryFood, 20),
	} {
		if err := s.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction: %v", err)
		}
	}

	template := mk(500_00, core.CategoryUtilities, 1)
	template.IsRecurring = true
	template.Frequency = core.FrequencyMonthly
	if err := s.SaveTransaction(ctx, template); err != nil {
		t.Fatalf("SaveTransaction template: %v", err)
	}

	all, err := s.ListTransactions(ctx, "fam-1", ports.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListTransactions = %d events, want 3 (template excluded)", len(all))
	}
	if !all[0].Date.After(all[1].Date) || !all[1].Date.After(all[2].Date) {
		t.Error("transactions not sorted newest first")
	}

	food, err := s.ListTransactions(ctx, "fam-1", ports.TransactionFilter{Category: core.CategoryFood})
	if err != nil {
		t.Fatalf("ListTransactions food: %v", err)
	}
	if len(food) != 2 {
		t.Errorf("food transactions = %d, want 2", len(food))
	}

	ranged, err := s.ListTransactions(ctx, "fam-1", ports.TransactionFilter{From: day(5), To: day(15)})
	if err != nil {
		t.Fatalf("ListTransactions range: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Category != core.CategoryTransport {
		t.Errorf("range filter returned %d events, want the transport one", len(ranged))
	}

	limited, err := s.ListTransactions(ctx, "fam-1", ports.TransactionFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListTransactions limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit filter returned %d events, want 1", len(limited))
	}

	due, err := s.RecurringDue(ctx, day(2), 0)
	if err != nil {
		t.Fatalf("RecurringDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != template.ID {
		t.Fatalf("RecurringDue = %d templates, want the one due", len(due))
	}
	if !due[0].IsRecurring || due[0].Frequency != core.FrequencyMonthly {
		t.Error("template lost recurrence fields in round trip")
	}
}

func TestStore_Goals(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	deadline := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.Local)
	g, err := core.NewGoal("Отпуск на море", 120000_00, "fam-1", "user-1", &deadline, core.PriorityHigh, "")
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}
	if err := s.SaveGoal(ctx, g); err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}

	got, err := s.GoalByName(ctx, "fam-1", "отпуск")
	if err != nil {
		t.Fatalf("GoalByName: %v", err)
	}
	if got.ID != g.ID {
		t.Errorf("GoalByName id = %q, want %q", got.ID, g.ID)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v, want %v", got.Deadline, deadline)
	}

	got.AddProgress(30000_00)
	if err := s.SaveGoal(ctx, got); err != nil {
		t.Fatalf("SaveGoal update: %v", err)
	}
	again, err := s.GoalByID(ctx, "fam-1", g.ID)
	if err != nil {
		t.Fatalf("GoalByID: %v", err)
	}
	if again.CurrentCents != 30000_00 {
		t.Errorf("CurrentCents = %d, want %d", again.CurrentCents, 30000_00)
	}

	if _, err := s.GoalByName(ctx, "fam-1", "машина"); err != core.ErrGoalNotFound {
		t.Errorf("GoalByName miss: err = %v, want ErrGoalNotFound", err)
	}
	if _, err := s.GoalByName(ctx, "fam-2", "отпуск"); err != core.ErrGoalNotFound {
		t.Errorf("GoalByName other family: err = %v, want ErrGoalNotFound", err)
	}
}

func TestStore_ShoppingLists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := core.NewShoppingList("Продукты", "fam-1", "user-1")
	milk, err := core.NewShoppingItem("молоко", 2, "л", core.ItemDairy, core.PriorityMedium)
	if err != nil {
		t.Fatalf("NewShoppingItem: %v", err)
	}
	bread, err := core.NewShoppingItem("хлеб", 1, "шт", core.ItemBakery, core.PriorityMedium)
	if err != nil {
		t.Fatalf("NewShoppingItem: %v", err)
	}
	first.AddItem(milk)
	first.AddItem(bread)
	if err := s.SaveList(ctx, first); err != nil {
		t.Fatalf("SaveList: %v", err)
	}

	got, err := s.ActiveList(ctx, "fam-1")
	if err != nil {
		t.Fatalf("ActiveList: %v", err)
	}
	if got.ID != first.ID || len(got.Items) != 2 {
		t.Fatalf("ActiveList = %q with %d items, want %q with 2", got.ID, len(got.Items), first.ID)
	}
	if got.Items[0].Name != "молоко" || got.Items[1].Name != "хлеб" {
		t.Error("item order not preserved")
	}

	// Saving a new active list deactivates the previous one.
	second := core.NewShoppingList("Хозтовары", "fam-1", "user-1")
	if err := s.SaveList(ctx, second); err != nil {
		t.Fatalf("SaveList second: %v", err)
	}
	active, err := s.ActiveList(ctx, "fam-1")
	if err != nil {
		t.Fatalf("ActiveList after second save: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active list = %q, want %q", active.ID, second.ID)
	}
	old, err := s.ListByID(ctx, "fam-1", first.ID)
	if err != nil {
		t.Fatalf("ListByID: %v", err)
	}
	if old.Active {
		t.Error("first list still active after second save")
	}

	if _, err := s.ActiveList(ctx, "fam-2"); err != core.ErrListNotFound {
		t.Errorf("ActiveList other family: err = %v, want ErrListNotFound", err)
	}
}
