// Package memory implements the dialogue repositories with in-process maps.
// It backs the memory data backend and every repository-facing test. All
// reads and writes go through deep copies so callers never share state with
// the store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"jarvis/internal/core"
	"jarvis/internal/ports"
)

// Store holds every family's data behind one mutex per family, so all
// operations of one family are serialized while families stay independent.
type Store struct {
	mu       sync.Mutex
	families map[string]*familyData
}

type familyData struct {
	mu           sync.Mutex
	budgets      map[string]*core.Budget
	transactions map[string]core.Transaction
	goals        map[string]*core.FinancialGoal
	lists        map[string]*core.ShoppingList
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{families: make(map[string]*familyData)}
}

func (s *Store) family(familyID string) *familyData {
	s.mu.Lock()
	defer s.mu.Unlock()

	fd, ok := s.families[familyID]
	if !ok {
		fd = &familyData{
			budgets:      make(map[string]*core.Budget),
			transactions: make(map[string]core.Transaction),
			goals:        make(map[string]*core.FinancialGoal),
			lists:        make(map[string]*core.ShoppingList),
		}
		s.families[familyID] = fd
	}
	return fd
}

// SaveBudget upserts a budget.
func (s *Store) SaveBudget(_ context.Context, b *core.Budget) error {
	fd := s.family(b.FamilyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.budgets[b.ID] = b.Clone()
	return nil
}

// BudgetByID fetches one budget of the family.
func (s *Store) BudgetByID(_ context.Context, familyID, id string) (*core.Budget, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	b, ok := fd.budgets[id]
	if !ok {
		return nil, core.ErrBudgetNotFound
	}
	return b.Clone(), nil
}

// BudgetForDate returns the family budget whose period covers date.
func (s *Store) BudgetForDate(_ context.Context, familyID string, date time.Time) (*core.Budget, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	for _, b := range fd.budgets {
		if !date.Before(b.PeriodStart) && !date.After(b.PeriodEnd) {
			return b.Clone(), nil
		}
	}
	return nil, core.ErrBudgetNotFound
}

// ListBudgets returns all budgets of the family, newest period first.
func (s *Store) ListBudgets(_ context.Context, familyID string) ([]*core.Budget, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	budgets := make([]*core.Budget, 0, len(fd.budgets))
	for _, b := range fd.budgets {
		budgets = append(budgets, b.Clone())
	}
	sort.Slice(budgets, func(i, j int) bool {
		return budgets[i].PeriodStart.After(budgets[j].PeriodStart)
	})
	return budgets, nil
}

// SaveTransaction upserts a transaction.
func (s *Store) SaveTransaction(_ context.Context, tx core.Transaction) error {
	fd := s.family(tx.FamilyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.transactions[tx.ID] = tx
	return nil
}

// ListTransactions returns the family's transaction events matching the
// filter, newest first. Recurring templates are excluded.
func (s *Store) ListTransactions(_ context.Context, familyID string, filter ports.TransactionFilter) ([]core.Transaction, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	var txs []core.Transaction
	for _, tx := range fd.transactions {
		if tx.IsRecurring || !matches(tx, filter) {
			continue
		}
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
	if filter.Limit > 0 && len(txs) > filter.Limit {
		txs = txs[:filter.Limit]
	}
	return txs, nil
}

func matches(tx core.Transaction, f ports.TransactionFilter) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	return true
}

// RecurringDue returns due recurring templates across all families.
func (s *Store) RecurringDue(_ context.Context, now time.Time, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	families := make([]*familyData, 0, len(s.families))
	for _, fd := range s.families {
		families = append(families, fd)
	}
	s.mu.Unlock()

	var due []core.Transaction
	for _, fd := range families {
		fd.mu.Lock()
		for _, tx := range fd.transactions {
			if tx.IsRecurring && !tx.Date.After(now) {
				due = append(due, tx)
			}
		}
		fd.mu.Unlock()
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Date.Before(due[j].Date) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// SaveGoal upserts a goal.
func (s *Store) SaveGoal(_ context.Context, g *core.FinancialGoal) error {
	fd := s.family(g.FamilyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.goals[g.ID] = g.Clone()
	return nil
}

// GoalByID fetches one goal of the family.
func (s *Store) GoalByID(_ context.Context, familyID, id string) (*core.FinancialGoal, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	g, ok := fd.goals[id]
	if !ok {
		return nil, core.ErrGoalNotFound
	}
	return g.Clone(), nil
}

// GoalByName finds a goal by case-insensitive name match, exact name first.
func (s *Store) GoalByName(_ context.Context, familyID, name string) (*core.FinancialGoal, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	var partial *core.FinancialGoal
	for _, g := range fd.goals {
		haystack := strings.ToLower(g.Name)
		if haystack == needle {
			return g.Clone(), nil
		}
		if partial == nil && strings.Contains(haystack, needle) {
			partial = g
		}
	}
	if partial != nil {
		return partial.Clone(), nil
	}
	return nil, core.ErrGoalNotFound
}

// ListGoals returns the family's goals, oldest first.
func (s *Store) ListGoals(_ context.Context, familyID string) ([]*core.FinancialGoal, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	goals := make([]*core.FinancialGoal, 0, len(fd.goals))
	for _, g := range fd.goals {
		goals = append(goals, g.Clone())
	}
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].CreatedAt.Before(goals[j].CreatedAt)
	})
	return goals, nil
}

// SaveList upserts a shopping list. Saving an active list deactivates any
// other active list of the family.
func (s *Store) SaveList(_ context.Context, l *core.ShoppingList) error {
	fd := s.family(l.FamilyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	if l.Active {
		for _, other := range fd.lists {
			if other.ID != l.ID {
				other.Active = false
			}
		}
	}
	fd.lists[l.ID] = l.Clone()
	return nil
}

// ActiveList returns the family's active shopping list.
func (s *Store) ActiveList(_ context.Context, familyID string) (*core.ShoppingList, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	for _, l := range fd.lists {
		if l.Active {
			return l.Clone(), nil
		}
	}
	return nil, core.ErrListNotFound
}

// ListByID fetches one shopping list of the family.
func (s *Store) ListByID(_ context.Context, familyID, id string) (*core.ShoppingList, error) {
	fd := s.family(familyID)
	fd.mu.Lock()
	defer fd.mu.Unlock()

	l, ok := fd.lists[id]
	if !ok {
		return nil, core.ErrListNotFound
	}
	return l.Clone(), nil
}
