package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GoalPriority orders financial goals by urgency.
type GoalPriority string

const (
	PriorityLow    GoalPriority = "low"
	PriorityMedium GoalPriority = "medium"
	PriorityHigh   GoalPriority = "high"
	PriorityUrgent GoalPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p GoalPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// RuName returns the Russian display name of the priority.
func (p GoalPriority) RuName() string {
	switch p {
	case PriorityLow:
		return "Низкий"
	case PriorityMedium:
		return "Средний"
	case PriorityHigh:
		return "Высокий"
	case PriorityUrgent:
		return "Срочный"
	}
	return "Средний"
}

// ParsePriority maps a raw string onto a priority, defaulting to medium.
func ParsePriority(s string) GoalPriority {
	p := GoalPriority(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

var (
	ErrInvalidTarget = errors.New("target amount must be positive")
	ErrGoalNotFound  = errors.New("goal not found")
)

// FinancialGoal is a savings target a family works toward. CurrentCents only
// grows, through contributions.
type FinancialGoal struct {
	ID           string
	Name         string
	TargetCents  int64
	CurrentCents int64
	Currency     string
	StartDate    time.Time
	Deadline     *time.Time
	FamilyID     string
	CreatedBy    string
	Priority     GoalPriority
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewGoal builds a goal with zero progress.
func NewGoal(name string, targetCents int64, familyID, createdBy string, deadline *time.Time, priority GoalPriority, notes string) (*FinancialGoal, error) {
	if targetCents <= 0 {
		return nil, ErrInvalidTarget
	}
	if !priority.Valid() {
		priority = PriorityMedium
	}
	now := time.Now()
	return &FinancialGoal{
		ID:          uuid.NewString(),
		Name:        name,
		TargetCents: targetCents,
		Currency:    DefaultCurrency,
		StartDate:   now,
		Deadline:    deadline,
		FamilyID:    familyID,
		CreatedBy:   createdBy,
		Priority:    priority,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AddProgress raises the saved amount; contributions never shrink it.
func (g *FinancialGoal) AddProgress(amountCents int64) {
	if amountCents <= 0 {
		return
	}
	g.CurrentCents += amountCents
	g.UpdatedAt = time.Now()
}

// Progress returns the completion percentage in [0,100].
func (g *FinancialGoal) Progress() float64 {
	if g.TargetCents == 0 {
		return 100.0
	}
	p := float64(g.CurrentCents) / float64(g.TargetCents) * 100
	if p > 100 {
		return 100.0
	}
	return p
}

// Remaining returns the cents still missing, never negative.
func (g *FinancialGoal) Remaining() int64 {
	if g.CurrentCents >= g.TargetCents {
		return 0
	}
	return g.TargetCents - g.CurrentCents
}

// Completed reports whether the target is reached.
func (g *FinancialGoal) Completed() bool {
	return g.CurrentCents >= g.TargetCents
}

// MonthlyContribution returns the cents to save each month to reach the
// target by the deadline. It is nil when no deadline is set, and zero when
// the goal is complete or the deadline already passed. Partial months count
// as a full month boundary; the divisor is the calendar month difference.
func (g *FinancialGoal) MonthlyContribution(now time.Time) *int64 {
	if g.Deadline == nil {
		return nil
	}

	var contribution int64
	remaining := g.Remaining()
	if remaining <= 0 || !now.Before(*g.Deadline) {
		return &contribution
	}

	months := int64(g.Deadline.Year()-now.Year())*12 + int64(g.Deadline.Month()-now.Month())
	if months <= 0 {
		contribution = remaining
		return &contribution
	}

	contribution = (remaining + months/2) / months
	return &contribution
}

// Clone returns an independent copy.
func (g *FinancialGoal) Clone() *FinancialGoal {
	cp := *g
	if g.Deadline != nil {
		d := *g.Deadline
		cp.Deadline = &d
	}
	return &cp
}
