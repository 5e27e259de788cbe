// Package ports declares the repository interfaces the dialogue engine
// depends on. They live apart from the engine so storage backends can
// implement them without importing it.
package ports

import (
	"context"
	"time"

	"jarvis/internal/core"
)

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	From     time.Time
	To       time.Time
	Category core.Category
	Type     core.TransactionType
	Limit    int
}

// BudgetRepository persists budgets keyed by family and period.
type BudgetRepository interface {
	SaveBudget(ctx context.Context, b *core.Budget) error
	BudgetByID(ctx context.Context, familyID, id string) (*core.Budget, error)
	// BudgetForDate returns the family budget whose period covers date,
	// or core.ErrBudgetNotFound when none exists.
	BudgetForDate(ctx context.Context, familyID string, date time.Time) (*core.Budget, error)
	ListBudgets(ctx context.Context, familyID string) ([]*core.Budget, error)
}

// TransactionRepository persists the transaction log. Recurring templates
// (IsRecurring=true) are schedules, not events: their Date field holds the
// next due occurrence and ListTransactions excludes them.
type TransactionRepository interface {
	SaveTransaction(ctx context.Context, tx core.Transaction) error
	ListTransactions(ctx context.Context, familyID string, filter TransactionFilter) ([]core.Transaction, error)
	// RecurringDue returns recurring templates whose next occurrence is
	// not after now, across all families.
	RecurringDue(ctx context.Context, now time.Time, limit int) ([]core.Transaction, error)
}

// GoalRepository persists financial goals.
type GoalRepository interface {
	SaveGoal(ctx context.Context, g *core.FinancialGoal) error
	GoalByID(ctx context.Context, familyID, id string) (*core.FinancialGoal, error)
	GoalByName(ctx context.Context, familyID, name string) (*core.FinancialGoal, error)
	ListGoals(ctx context.Context, familyID string) ([]*core.FinancialGoal, error)
}

// ShoppingRepository persists shopping lists. A family has at most one
// active list at a time.
type ShoppingRepository interface {
	SaveList(ctx context.Context, l *core.ShoppingList) error
	ActiveList(ctx context.Context, familyID string) (*core.ShoppingList, error)
	ListByID(ctx context.Context, familyID, id string) (*core.ShoppingList, error)
}

// Store bundles the four repositories a dialogue engine needs.
type Store interface {
	BudgetRepository
	TransactionRepository
	GoalRepository
	ShoppingRepository
}
