package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CategoryBudget is the spend ceiling and accumulated spend for one expense
// category within one budget period.
type CategoryBudget struct {
	Category   Category
	LimitCents int64
	SpentCents int64
}

// Remaining returns the cents left before the limit, never negative.
func (cb CategoryBudget) Remaining() int64 {
	if cb.SpentCents >= cb.LimitCents {
		return 0
	}
	return cb.LimitCents - cb.SpentCents
}

// Progress returns the percentage of the limit spent, capped at 100.
// A zero-limit category is at 100% as soon as anything is spent.
func (cb CategoryBudget) Progress() float64 {
	if cb.LimitCents == 0 {
		if cb.SpentCents > 0 {
			return 100.0
		}
		return 0.0
	}
	p := float64(cb.SpentCents) / float64(cb.LimitCents) * 100
	if p > 100 {
		return 100.0
	}
	return p
}

// Exceeded reports whether the spend went over the limit.
func (cb CategoryBudget) Exceeded() bool {
	return cb.SpentCents > cb.LimitCents
}

// Budget is one family's spending plan for a bounded time period.
// A family has at most one budget whose period contains "now".
type Budget struct {
	ID                string
	Name              string
	FamilyID          string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	Currency          string
	IncomePlanCents   int64
	IncomeActualCents int64
	Categories        map[Category]*CategoryBudget
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewMonthlyBudget builds a budget spanning the given calendar month, from
// the first instant of day one to 23:59:59 on the last day.
func NewMonthlyBudget(year, month int, familyID, createdBy string, incomePlanCents int64, name string) (*Budget, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	// Day zero of the next month is the last day of this one.
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.Local).Day()
	end := time.Date(year, time.Month(month), lastDay, 23, 59, 59, 0, time.Local)

	if name == "" {
		name = fmt.Sprintf("Бюджет на %s %d", ruMonthNames[month], year)
	}

	now := time.Now()
	return &Budget{
		ID:              uuid.NewString(),
		Name:            name,
		FamilyID:        familyID,
		PeriodStart:     start,
		PeriodEnd:       end,
		Currency:        DefaultCurrency,
		IncomePlanCents: incomePlanCents,
		Categories:      make(map[Category]*CategoryBudget),
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

var ruMonthNames = map[int]string{
	1: "январь", 2: "февраль", 3: "март", 4: "апрель",
	5: "май", 6: "июнь", 7: "июль", 8: "август",
	9: "сентябрь", 10: "октябрь", 11: "ноябрь", 12: "декабрь",
}

// Contains reports whether t falls inside the budget period.
func (b *Budget) Contains(t time.Time) bool {
	return !t.Before(b.PeriodStart) && !t.After(b.PeriodEnd)
}

// TotalLimit returns the summed category limits.
func (b *Budget) TotalLimit() int64 {
	var total int64
	for _, cb := range b.Categories {
		total += cb.LimitCents
	}
	return total
}

// TotalSpent returns the summed category spends.
func (b *Budget) TotalSpent() int64 {
	var total int64
	for _, cb := range b.Categories {
		total += cb.SpentCents
	}
	return total
}

// RemainingTotal returns the cents left across all categories, never negative.
func (b *Budget) RemainingTotal() int64 {
	limit, spent := b.TotalLimit(), b.TotalSpent()
	if spent >= limit {
		return 0
	}
	return limit - spent
}

// Balance returns actual income minus total spend; may be negative.
func (b *Budget) Balance() int64 {
	return b.IncomeActualCents - b.TotalSpent()
}

// SetCategoryLimit creates or replaces the limit of one category.
func (b *Budget) SetCategoryLimit(category Category, limitCents int64) {
	if cb, ok := b.Categories[category]; ok {
		cb.LimitCents = limitCents
	} else {
		b.Categories[category] = &CategoryBudget{Category: category, LimitCents: limitCents}
	}
	b.UpdatedAt = time.Now()
}

// addExpense books a spend against a category, creating a zero-limit
// category budget when the category is new to this period.
func (b *Budget) addExpense(category Category, amountCents int64) {
	cb, ok := b.Categories[category]
	if !ok {
		cb = &CategoryBudget{Category: category}
		b.Categories[category] = cb
	}
	cb.SpentCents += amountCents
	b.UpdatedAt = time.Now()
}

// ApplyTransaction books tx into the budget. It returns false, leaving the
// budget unmodified, when the transaction date is outside the period or the
// family does not match. Incomes raise IncomeActualCents, expenses raise the
// matching category spend.
func (b *Budget) ApplyTransaction(tx Transaction) bool {
	if !b.Contains(tx.Date) {
		return false
	}
	if tx.FamilyID != b.FamilyID {
		return false
	}

	switch tx.Type {
	case TypeIncome:
		b.IncomeActualCents += tx.AmountCents
		b.UpdatedAt = time.Now()
	case TypeExpense:
		b.addExpense(tx.Category, tx.AmountCents)
	default:
		return false
	}
	return true
}

// CategoryStat is one row of the per-category breakdown.
type CategoryStat struct {
	Category       Category
	LimitCents     int64
	SpentCents     int64
	RemainingCents int64
	Progress       float64
	Exceeded       bool
}

// CategoryStats returns the per-category breakdown sorted by budget usage,
// most consumed first.
func (b *Budget) CategoryStats() []CategoryStat {
	stats := make([]CategoryStat, 0, len(b.Categories))
	for _, cb := range b.Categories {
		stats = append(stats, CategoryStat{
			Category:       cb.Category,
			LimitCents:     cb.LimitCents,
			SpentCents:     cb.SpentCents,
			RemainingCents: cb.Remaining(),
			Progress:       cb.Progress(),
			Exceeded:       cb.Exceeded(),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Progress != stats[j].Progress {
			return stats[i].Progress > stats[j].Progress
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

// Clone returns a deep copy, so stores can hand out budgets without sharing
// the category map with callers.
func (b *Budget) Clone() *Budget {
	cp := *b
	cp.Categories = make(map[Category]*CategoryBudget, len(b.Categories))
	for cat, cb := range b.Categories {
		c := *cb
		cp.Categories[cat] = &c
	}
	return &cp
}
