package core

import (
	"testing"
	"time"
)

func testBudget(t *testing.T, year, month int) *Budget {
	t.Helper()
	b, err := NewMonthlyBudget(year, month, "fam-1", "user-1", 0, "")
	if err != nil {
		t.Fatalf("NewMonthlyBudget(%d, %d) error = %v", year, month, err)
	}
	return b
}

func TestCategoryBudget_Derived(t *testing.T) {
	tests := []struct {
		name          string
		limit, spent  int64
		wantRemaining int64
		wantProgress  float64
		wantExceeded  bool
	}{
		{"under limit", 10000, 2000, 8000, 20, false},
		{"at limit", 10000, 10000, 0, 100, false},
		{"over limit", 3000, 3500, 0, 100, true},
		{"zero limit zero spent", 0, 0, 0, 0, false},
		{"zero limit with spend", 0, 1, 0, 100, true},
		{"untouched", 500, 0, 500, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := CategoryBudget{Category: CategoryFood, LimitCents: tt.limit, SpentCents: tt.spent}
			if got := cb.Remaining(); got != tt.wantRemaining {
				t.Errorf("Remaining() = %d, want %d", got, tt.wantRemaining)
			}
			if got := cb.Progress(); got != tt.wantProgress {
				t.Errorf("Progress() = %v, want %v", got, tt.wantProgress)
			}
			if got := cb.Exceeded(); got != tt.wantExceeded {
				t.Errorf("Exceeded() = %v, want %v", got, tt.wantExceeded)
			}
		})
	}
}

func TestNewMonthlyBudget_Period(t *testing.T) {
	tests := []struct {
		name        string
		year, month int
		wantEndDay  int
	}{
		{"january", 2024, 1, 31},
		{"leap february", 2024, 2, 29},
		{"non-leap february", 2023, 2, 28},
		{"april", 2024, 4, 30},
		{"december", 2024, 12, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBudget(t, tt.year, tt.month)

			wantStart := time.Date(tt.year, time.Month(tt.month), 1, 0, 0, 0, 0, time.Local)
			if !b.PeriodStart.Equal(wantStart) {
				t.Errorf("PeriodStart = %v, want %v", b.PeriodStart, wantStart)
			}
			wantEnd := time.Date(tt.year, time.Month(tt.month), tt.wantEndDay, 23, 59, 59, 0, time.Local)
			if !b.PeriodEnd.Equal(wantEnd) {
				t.Errorf("PeriodEnd = %v, want %v", b.PeriodEnd, wantEnd)
			}
		})
	}
}

func TestNewMonthlyBudget_InvalidMonth(t *testing.T) {
	for _, month := range []int{0, 13, -1} {
		if _, err := NewMonthlyBudget(2024, month, "fam-1", "user-1", 0, ""); err != ErrInvalidMonth {
			t.Errorf("NewMonthlyBudget(month=%d) error = %v, want ErrInvalidMonth", month, err)
		}
	}
}

func TestBudget_ApplyTransaction_Expense(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 10000_00)
	b.Categories[CategoryFood].SpentCents = 2000_00

	tx := NewExpense(1500_00, CategoryFood, "обед", "fam-1", "user-1",
		time.Date(2024, 3, 15, 13, 0, 0, 0, time.Local))

	if ok := b.ApplyTransaction(tx); !ok {
		t.Fatal("ApplyTransaction() = false, want true")
	}

	cb := b.Categories[CategoryFood]
	if cb.SpentCents != 3500_00 {
		t.Errorf("spent = %d, want %d", cb.SpentCents, int64(3500_00))
	}
	if cb.Remaining() != 6500_00 {
		t.Errorf("remaining = %d, want %d", cb.Remaining(), int64(6500_00))
	}
	if cb.Exceeded() {
		t.Error("Exceeded() = true, want false")
	}
}

func TestBudget_ApplyTransaction_ExpenseOverLimit(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 3000_00)
	b.Categories[CategoryFood].SpentCents = 2000_00

	tx := NewExpense(1500_00, CategoryFood, "обед", "fam-1", "user-1",
		time.Date(2024, 3, 15, 13, 0, 0, 0, time.Local))

	if ok := b.ApplyTransaction(tx); !ok {
		t.Fatal("ApplyTransaction() = false, want true")
	}
	if !b.Categories[CategoryFood].Exceeded() {
		t.Error("Exceeded() = false, want true after overspend")
	}
}

func TestBudget_ApplyTransaction_NewCategory(t *testing.T) {
	b := testBudget(t, 2024, 3)

	tx := NewExpense(700_00, CategoryTransport, "такси", "fam-1", "user-1",
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.Local))
	if ok := b.ApplyTransaction(tx); !ok {
		t.Fatal("ApplyTransaction() = false, want true")
	}

	cb, exists := b.Categories[CategoryTransport]
	if !exists {
		t.Fatal("category budget was not auto-created")
	}
	if cb.LimitCents != 0 {
		t.Errorf("auto-created limit = %d, want 0", cb.LimitCents)
	}
	if cb.SpentCents != 700_00 {
		t.Errorf("spent = %d, want %d", cb.SpentCents, int64(700_00))
	}
	if !cb.Exceeded() {
		t.Error("zero-limit category with spend should be exceeded")
	}
}

func TestBudget_ApplyTransaction_Income(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 10000_00)

	tx := NewIncome(50000_00, "зарплата", "fam-1", "user-1",
		time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local))
	if ok := b.ApplyTransaction(tx); !ok {
		t.Fatal("ApplyTransaction() = false, want true")
	}

	if b.IncomeActualCents != 50000_00 {
		t.Errorf("IncomeActualCents = %d, want %d", b.IncomeActualCents, int64(50000_00))
	}
	// income must not touch category spends
	if b.TotalSpent() != 0 {
		t.Errorf("TotalSpent() = %d, want 0", b.TotalSpent())
	}
}

func TestBudget_ApplyTransaction_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		familyID string
	}{
		{"date before period", time.Date(2024, 2, 29, 23, 59, 59, 0, time.Local), "fam-1"},
		{"date after period", time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local), "fam-1"},
		{"family mismatch", time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local), "fam-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBudget(t, 2024, 3)
			b.SetCategoryLimit(CategoryFood, 10000_00)

			tx := NewExpense(1000_00, CategoryFood, "обед", tt.familyID, "user-1", tt.date)
			if ok := b.ApplyTransaction(tx); ok {
				t.Fatal("ApplyTransaction() = true, want false")
			}
			if b.Categories[CategoryFood].SpentCents != 0 {
				t.Error("rejected transaction modified the budget")
			}
			if b.IncomeActualCents != 0 {
				t.Error("rejected transaction modified income")
			}
		})
	}
}

func TestBudget_ApplyTransaction_PeriodBoundaries(t *testing.T) {
	b := testBudget(t, 2024, 2)

	// both period edges are inside the budget
	for _, date := range []time.Time{b.PeriodStart, b.PeriodEnd} {
		tx := NewExpense(100_00, CategoryOther, "x", "fam-1", "user-1", date)
		if ok := b.ApplyTransaction(tx); !ok {
			t.Errorf("ApplyTransaction at %v = false, want true", date)
		}
	}
}

func TestBudget_Totals(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 10000_00)
	b.SetCategoryLimit(CategoryTransport, 5000_00)
	b.Categories[CategoryFood].SpentCents = 4000_00
	b.Categories[CategoryTransport].SpentCents = 6000_00
	b.IncomeActualCents = 30000_00

	if got := b.TotalLimit(); got != 15000_00 {
		t.Errorf("TotalLimit() = %d, want %d", got, int64(15000_00))
	}
	if got := b.TotalSpent(); got != 10000_00 {
		t.Errorf("TotalSpent() = %d, want %d", got, int64(10000_00))
	}
	if got := b.RemainingTotal(); got != 5000_00 {
		t.Errorf("RemainingTotal() = %d, want %d", got, int64(5000_00))
	}
	if got := b.Balance(); got != 20000_00 {
		t.Errorf("Balance() = %d, want %d", got, int64(20000_00))
	}
}

func TestBudget_CategoryStats_Order(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 10000_00)
	b.SetCategoryLimit(CategoryTransport, 10000_00)
	b.SetCategoryLimit(CategoryEntertainment, 10000_00)
	b.Categories[CategoryFood].SpentCents = 5000_00          // 50%
	b.Categories[CategoryTransport].SpentCents = 12000_00    // 100%, exceeded
	b.Categories[CategoryEntertainment].SpentCents = 1000_00 // 10%

	stats := b.CategoryStats()
	if len(stats) != 3 {
		t.Fatalf("len(stats) = %d, want 3", len(stats))
	}

	wantOrder := []Category{CategoryTransport, CategoryFood, CategoryEntertainment}
	for i, want := range wantOrder {
		if stats[i].Category != want {
			t.Errorf("stats[%d].Category = %s, want %s", i, stats[i].Category, want)
		}
	}
	if !stats[0].Exceeded {
		t.Error("top stat should be exceeded")
	}
	if stats[0].RemainingCents != 0 {
		t.Errorf("exceeded remaining = %d, want 0", stats[0].RemainingCents)
	}
}

func TestBudget_SetCategoryLimit_PreservesSpend(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 1000_00)
	b.Categories[CategoryFood].SpentCents = 400_00

	b.SetCategoryLimit(CategoryFood, 2000_00)
	if b.Categories[CategoryFood].SpentCents != 400_00 {
		t.Error("raising a limit must not reset the accumulated spend")
	}
	if b.Categories[CategoryFood].LimitCents != 2000_00 {
		t.Errorf("limit = %d, want %d", b.Categories[CategoryFood].LimitCents, int64(2000_00))
	}
}

func TestBudget_Clone_Isolated(t *testing.T) {
	b := testBudget(t, 2024, 3)
	b.SetCategoryLimit(CategoryFood, 1000_00)

	cp := b.Clone()
	cp.Categories[CategoryFood].SpentCents = 999_00

	if b.Categories[CategoryFood].SpentCents != 0 {
		t.Error("Clone() shares category budgets with the original")
	}
}

func TestTransaction_Validate(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{"valid expense", NewExpense(100_00, CategoryFood, "обед", "fam-1", "u1", date), nil},
		{"valid income", NewIncome(100_00, "зарплата", "fam-1", "u1", date), nil},
		{
			"zero amount",
			Transaction{AmountCents: 0, Category: CategoryFood, Type: TypeExpense, Description: "x", FamilyID: "fam-1"},
			ErrInvalidAmount,
		},
		{
			"negative amount",
			Transaction{AmountCents: -5, Category: CategoryFood, Type: TypeExpense, Description: "x", FamilyID: "fam-1"},
			ErrInvalidAmount,
		},
		{
			"income with expense category",
			Transaction{AmountCents: 100, Category: CategoryFood, Type: TypeIncome, Description: "x", FamilyID: "fam-1"},
			ErrIncomeCategory,
		},
		{
			"missing family",
			Transaction{AmountCents: 100, Category: CategoryFood, Type: TypeExpense, Description: "x"},
			ErrEmptyFamily,
		},
		{
			"recurring without frequency",
			Transaction{AmountCents: 100, Category: CategoryFood, Type: TypeExpense, Description: "x", FamilyID: "fam-1", IsRecurring: true},
			ErrInvalidFrequency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tx.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"food", CategoryFood},
		{" Food ", CategoryFood},
		{"TRANSPORT", CategoryTransport},
		{"nonsense", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		if got := ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
