// Package worker materializes recurring transactions on a schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jarvis/internal/core"
	"jarvis/internal/log"
	"jarvis/internal/ports"
)

// catchUpLimit bounds how many missed occurrences a single template can
// produce in one run, so a long-dormant template cannot flood the ledger.
const catchUpLimit = 24

// RecurringProcessor turns due recurring templates into dated transactions
// and applies them to the covering budget.
type RecurringProcessor struct {
	budgets      ports.BudgetRepository
	transactions ports.TransactionRepository
	batch        int
	logger       *log.Logger
}

// NewRecurringProcessor wires the processor to its repositories. batch
// limits how many templates one run picks up; zero means no limit.
func NewRecurringProcessor(budgets ports.BudgetRepository, transactions ports.TransactionRepository, batch int, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		budgets:      budgets,
		transactions: transactions,
		batch:        batch,
		logger:       logger.WithComponent(log.ComponentWorker),
	}
}

// ProcessDue materializes every occurrence due at now and returns how many
// transactions were created. A failing template is logged and skipped so one
// bad record cannot stall the rest of the batch.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	templates, err := p.transactions.RecurringDue(ctx, now, p.batch)
	if err != nil {
		return 0, fmt.Errorf("list due templates: %w", err)
	}

	p.logger.InfoContext(ctx, "processing recurring transactions",
		"due_templates", len(templates),
		"processing_date", now.Format("2006-01-02"))

	created := 0
	for _, template := range templates {
		n, err := p.processTemplate(ctx, template, now)
		created += n
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to process recurring template",
				log.FieldFamilyID, template.FamilyID,
				log.FieldCategory, string(template.Category),
				log.FieldError, err)
		}
	}
	return created, nil
}

// processTemplate walks the template forward from its due date, creating one
// transaction per missed occurrence, then persists the advanced template.
func (p *RecurringProcessor) processTemplate(ctx context.Context, template core.Transaction, now time.Time) (int, error) {
	created := 0
	for i := 0; i < catchUpLimit && !template.Date.After(now); i++ {
		if err := p.materialize(ctx, template); err != nil {
			return created, err
		}
		created++
		template.Date = template.Frequency.Next(template.Date)
	}

	if err := p.transactions.SaveTransaction(ctx, template); err != nil {
		return created, fmt.Errorf("advance template: %w", err)
	}
	return created, nil
}

// materialize writes one dated occurrence and applies it to the budget that
// covers its date, when one exists.
func (p *RecurringProcessor) materialize(ctx context.Context, template core.Transaction) error {
	tx := template
	tx.ID = uuid.NewString()
	tx.IsRecurring = false
	tx.Frequency = ""
	tx.CreatedAt = time.Now()

	if err := p.transactions.SaveTransaction(ctx, tx); err != nil {
		return fmt.Errorf("save occurrence: %w", err)
	}

	budget, err := p.budgets.BudgetForDate(ctx, tx.FamilyID, tx.Date)
	if errors.Is(err, core.ErrBudgetNotFound) {
		p.logger.DebugContext(ctx, "no budget covers occurrence date",
			log.FieldFamilyID, tx.FamilyID,
			"date", tx.Date.Format("2006-01-02"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find budget: %w", err)
	}

	if !budget.ApplyTransaction(tx) {
		p.logger.WarnContext(ctx, "occurrence not applicable to budget",
			log.FieldFamilyID, tx.FamilyID,
			log.FieldBudgetID, budget.ID)
		return nil
	}
	if err := p.budgets.SaveBudget(ctx, budget); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	p.logger.InfoContext(ctx, "recurring transaction materialized",
		log.FieldFamilyID, tx.FamilyID,
		log.FieldCategory, string(tx.Category),
		log.FieldAmount, tx.AmountCents)
	return nil
}
