package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/core"
	"jarvis/internal/llm"
	"jarvis/internal/log"
)

// Budget domain intents.
const (
	IntentAddExpense       = "add_expense"
	IntentAddIncome        = "add_income"
	IntentViewBudget       = "view_budget"
	IntentCreateBudget     = "create_budget"
	IntentUpdateBudget     = "update_budget"
	IntentViewTransactions = "view_transactions"
	IntentCreateGoal       = "create_goal"
	IntentUpdateGoal       = "update_goal"
	IntentViewGoals        = "view_goals"
	IntentViewReports      = "view_reports"
)

var budgetIntents = []string{
	IntentAddExpense, IntentAddIncome, IntentViewBudget, IntentCreateBudget,
	IntentUpdateBudget, IntentViewTransactions, IntentCreateGoal,
	IntentUpdateGoal, IntentViewGoals, IntentViewReports,
}

// budgetRecord holds everything the budget extraction schemas can fill.
// Which fields are populated depends on the intent.
type budgetRecord struct {
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Period      string   `json:"period"`
	GoalName    string   `json:"goal_name"`
	Deadline    string   `json:"deadline"`
	Priority    string   `json:"priority"`
}

var expenseSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "amount", Type: llm.TypeNumber, Required: true, Description: "amount in rubles"},
	{
		Name: "category", Type: llm.TypeString, Required: true,
		Enum:        categoryEnum(),
		Description: "expense category",
	},
	{Name: "description", Type: llm.TypeString, Description: "what the money was spent on"},
}}

var incomeSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "amount", Type: llm.TypeNumber, Required: true, Description: "amount in rubles"},
	{Name: "description", Type: llm.TypeString, Description: "income source"},
}}

var limitSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "amount", Type: llm.TypeNumber, Required: true, Description: "new limit in rubles"},
	{
		Name: "category", Type: llm.TypeString, Required: true,
		Enum:        categoryEnum(),
		Description: "expense category to limit",
	},
}}

var periodSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "period", Type: llm.TypeString, Description: "budget period phrase, e.g. текущий месяц"},
	{Name: "amount", Type: llm.TypeNumber, Description: "planned income in rubles"},
}}

var goalSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "goal_name", Type: llm.TypeString, Required: true, Description: "what the family saves for"},
	{Name: "amount", Type: llm.TypeNumber, Required: true, Description: "target amount in rubles"},
	{Name: "deadline", Type: llm.TypeString, Description: "deadline date in YYYY-MM-DD format"},
	{
		Name: "priority", Type: llm.TypeString,
		Enum:        []string{"low", "medium", "high", "urgent"},
		Description: "goal priority",
	},
}}

var goalProgressSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "goal_name", Type: llm.TypeString, Required: true, Description: "which goal to update"},
	{Name: "amount", Type: llm.TypeNumber, Required: true, Description: "amount to add in rubles"},
}}

func categoryEnum() []string {
	cats := core.ExpenseCategories()
	enum := make([]string, len(cats))
	for i, c := range cats {
		enum[i] = string(c)
	}
	return enum
}

// BudgetHandler implements the budget domain pipeline over the family
// ledger: transactions, monthly budgets, goals and reports.
type BudgetHandler struct {
	store     Store
	extractor *llm.Extractor
	client    llm.Client
	threshold float64
	logger    *log.Logger
	locks     *familyLocks
	now       func() time.Time
}

// NewBudgetHandler wires the budget pipeline. now is injectable for tests.
func NewBudgetHandler(store Store, extractor *llm.Extractor, client llm.Client, threshold float64, logger *log.Logger) *BudgetHandler {
	return &BudgetHandler{
		store:     store,
		extractor: extractor,
		client:    client,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentPipeline),
		locks:     newFamilyLocks(),
		now:       time.Now,
	}
}

func (h *BudgetHandler) Domain() string { return DomainBudget }

func (h *BudgetHandler) Classify(ctx context.Context, in Input) (Classification, error) {
	return classifyIntent(ctx, h.extractor, DomainBudget, budgetIntents, h.threshold, in)
}

// Extract pulls the fields the intent needs. Read-only intents skip the
// model round-trip entirely.
func (h *BudgetHandler) Extract(ctx context.Context, in Input, c Classification) (budgetRecord, error) {
	var schema llm.Schema
	var task string

	switch c.Intent {
	case IntentAddExpense:
		schema, task = expenseSchema, "Extract the expense details from the user's message."
	case IntentAddIncome:
		schema, task = incomeSchema, "Extract the income details from the user's message."
	case IntentUpdateBudget:
		schema, task = limitSchema, "Extract the category limit change from the user's message."
	case IntentCreateBudget:
		schema, task = periodSchema, "Extract the budget period and planned income from the user's message."
	case IntentCreateGoal:
		schema, task = goalSchema, "Extract the savings goal details from the user's message."
	case IntentUpdateGoal:
		schema, task = goalProgressSchema, "Extract the goal progress update from the user's message."
	default:
		return budgetRecord{}, nil
	}

	rec := llm.Extract(ctx, h.extractor, schema, task, in.Text, budgetRecord{})
	return rec, nil
}

// Execute holds the family lock for the whole operation so concurrent
// messages cannot interleave between reading a budget and writing it back.
func (h *BudgetHandler) Execute(ctx context.Context, in Input, c Classification, rec budgetRecord) (Outcome, error) {
	defer h.locks.Lock(in.FamilyID)()

	switch c.Intent {
	case IntentAddExpense:
		return h.addExpense(ctx, in, rec)
	case IntentAddIncome:
		return h.addIncome(ctx, in, rec)
	case IntentViewBudget:
		return h.viewBudget(ctx, in)
	case IntentCreateBudget:
		return h.createBudget(ctx, in, rec)
	case IntentUpdateBudget:
		return h.updateLimit(ctx, in, rec)
	case IntentViewTransactions:
		return h.viewTransactions(ctx, in)
	case IntentCreateGoal:
		return h.createGoal(ctx, in, rec)
	case IntentUpdateGoal:
		return h.updateGoal(ctx, in, rec)
	case IntentViewGoals:
		return h.viewGoals(ctx, in)
	case IntentViewReports:
		return h.viewReports(ctx, in)
	}
	return Outcome{}, NotApplicable
}

func (h *BudgetHandler) Respond(ctx context.Context, in Input, c Classification, out Outcome) (string, error) {
	return phrase(ctx, h.client, c.Intent, out.Summary)
}

// currentBudget returns the family budget covering now, creating the month
// on first use.
func (h *BudgetHandler) currentBudget(ctx context.Context, familyID, userID string) (*core.Budget, error) {
	now := h.now()
	b, err := h.store.BudgetForDate(ctx, familyID, now)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, core.ErrBudgetNotFound) {
		return nil, err
	}

	b, err = core.NewMonthlyBudget(now.Year(), int(now.Month()), familyID, userID, 0, "")
	if err != nil {
		return nil, err
	}
	if err := h.store.SaveBudget(ctx, b); err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "created budget for current month",
		log.FieldOperation, log.OpCreate,
		log.FieldFamilyID, familyID,
		log.FieldBudgetID, b.ID)
	return b, nil
}

func (h *BudgetHandler) addExpense(ctx context.Context, in Input, rec budgetRecord) (Outcome, error) {
	if rec.Amount == nil || *rec.Amount <= 0 {
		return Outcome{Summary: "Не удалось распознать сумму расхода. Укажите, пожалуйста, сумму."}, nil
	}
	category := core.ParseCategory(rec.Category)
	description := rec.Description
	if description == "" {
		description = category.RuName()
	}

	tx := core.NewExpense(core.CentsFromFloat(*rec.Amount), category, description,
		in.FamilyID, in.UserID, h.now())
	if err := tx.Validate(); err != nil {
		return Outcome{}, err
	}

	budget, err := h.currentBudget(ctx, in.FamilyID, in.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if err := h.store.SaveTransaction(ctx, tx); err != nil {
		return Outcome{}, err
	}
	if budget.ApplyTransaction(tx) {
		if err := h.store.SaveBudget(ctx, budget); err != nil {
			return Outcome{}, err
		}
	}

	cb := budget.Categories[category]
	summary := fmt.Sprintf("Расход записан: %s %s %s (%s).\nПотрачено в категории: %s, осталось: %s.",
		category.Icon(), core.FormatCents(tx.AmountCents), category.RuName(), description,
		core.FormatCents(cb.SpentCents), core.FormatCents(cb.Remaining()))
	if cb.Exceeded() {
		summary += "\nВнимание: лимит категории превышен."
	}

	return Outcome{
		Summary: summary,
		Metadata: map[string]any{
			log.FieldAmount:   tx.AmountCents,
			log.FieldCategory: string(category),
			"spent_cents":     cb.SpentCents,
			"remaining_cents": cb.Remaining(),
			"exceeded":        cb.Exceeded(),
		},
	}, nil
}

func (h *BudgetHandler) addIncome(ctx context.Context, in Input, rec budgetRecord) (Outcome, error) {
	if rec.Amount == nil || *rec.Amount <= 0 {
		return Outcome{Summary: "Не удалось распознать сумму дохода. Укажите, пожалуйста, сумму."}, nil
	}
	description := rec.Description
	if description == "" {
		description = "Доход"
	}

	tx := core.NewIncome(core.CentsFromFloat(*rec.Amount), description,
		in.FamilyID, in.UserID, h.now())
	if err := tx.Validate(); err != nil {
		return Outcome{}, err
	}

	budget, err := h.currentBudget(ctx, in.FamilyID, in.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if err := h.store.SaveTransaction(ctx, tx); err != nil {
		return Outcome{}, err
	}
	if budget.ApplyTransaction(tx) {
		if err := h.store.SaveBudget(ctx, budget); err != nil {
			return Outcome{}, err
		}
	}

	return Outcome{
		Summary: fmt.Sprintf("Доход записан: %s (%s).\nДоход за месяц: %s, баланс: %s.",
			core.FormatCents(tx.AmountCents), description,
			core.FormatCents(budget.IncomeActualCents), core.FormatCents(budget.Balance())),
		Metadata: map[string]any{
			log.FieldAmount: tx.AmountCents,
			"income_actual": budget.IncomeActualCents,
		},
	}, nil
}

func (h *BudgetHandler) viewBudget(ctx context.Context, in Input) (Outcome, error) {
	budget, err := h.store.BudgetForDate(ctx, in.FamilyID, h.now())
	if errors.Is(err, core.ErrBudgetNotFound) {
		return Outcome{Summary: "Бюджет на текущий месяц ещё не создан. Скажите «создай бюджет», чтобы начать."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nПотрачено: %s из %s, остаток: %s.\n",
		budget.Name, core.FormatCents(budget.TotalSpent()),
		core.FormatCents(budget.TotalLimit()), core.FormatCents(budget.RemainingTotal()))
	for _, stat := range budget.CategoryStats() {
		fmt.Fprintf(&b, "%s %s: %s из %s (%.0f%%)\n",
			stat.Category.Icon(), stat.Category.RuName(),
			core.FormatCents(stat.SpentCents), core.FormatCents(stat.LimitCents),
			stat.Progress)
		if stat.Exceeded {
			b.WriteString("  лимит превышен\n")
		}
	}

	return Outcome{
		Summary:  b.String(),
		Metadata: map[string]any{log.FieldBudgetID: budget.ID},
	}, nil
}

func (h *BudgetHandler) createBudget(ctx context.Context, in Input, rec budgetRecord) (Outcome, error) {
	year, month := parsePeriod(rec.Period, h.now())

	midMonth := time.Date(year, time.Month(month), 15, 12, 0, 0, 0, time.Local)
	if existing, err := h.store.BudgetForDate(ctx, in.FamilyID, midMonth); err == nil {
		return Outcome{
			Summary:  fmt.Sprintf("Бюджет уже существует: %s.", existing.Name),
			Metadata: map[string]any{log.FieldBudgetID: existing.ID},
		}, nil
	} else if !errors.Is(err, core.ErrBudgetNotFound) {
		return Outcome{}, err
	}

	var incomePlan int64
	if rec.Amount != nil && *rec.Amount > 0 {
		incomePlan = core.CentsFromFloat(*rec.Amount)
	}
	budget, err := core.NewMonthlyBudget(year, month, in.FamilyID, in.UserID, incomePlan, "")
	if err != nil {
		return Outcome{}, err
	}
	if err := h.store.SaveBudget(ctx, budget); err != nil {
		return Outcome{}, err
	}

	summary := fmt.Sprintf("Создан %s.", budget.Name)
	if incomePlan > 0 {
		summary += fmt.Sprintf(" Планируемый доход: %s.", core.FormatCents(incomePlan))
	}
	return Outcome{
		Summary:  summary,
		Metadata: map[string]any{log.FieldBudgetID: budget.ID},
	}, nil
}

func (h *BudgetHandler) updateLimit(ctx context.Context, in Input, rec budgetRecord) (Outcome, error) {
	if rec.Amount == nil || *rec.Amount < 0 {
		return Outcome{Summary: "Не удалось распознать новый лимит. Укажите, пожалуйста, сумму."}, nil
	}
	category := core.ParseCategory(rec.Category)

	budget, err := h.currentBudget(ctx, in.FamilyID, in.UserID)
	if err != nil {
		return Outcome{}, err
	}
	limit := core.CentsFromFloat(*rec.Amount)
	budget.SetCategoryLimit(category, limit)
	if err := h.store.SaveBudget(ctx, budget); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Summary: fmt.Sprintf("Лимит категории %s %s установлен: %s.",
			category.Icon(), category.RuName(), core.FormatCents(limit)),
		Metadata: map[string]any{
			log.FieldCategory: string(category),
			log.FieldAmount:   limit,
		},
	}, nil
}

func (h *BudgetHandler) viewTransactions(ctx context.Context, in Input) (Outcome, error) {
	txs, err := h.store.ListTransactions(ctx, in.FamilyID, TransactionFilter{Limit: 10})
	if err != nil {
		return Outcome{}, err
	}
	if len(txs) == 0 {
		return Outcome{Summary: "Операций пока нет."}, nil
	}

	var b strings.Builder
	b.WriteString("Последние операции:\n")
	for _, tx := range txs {
		sign := "-"
		if tx.Type == core.TypeIncome {
			sign = "+"
		}
		fmt.Fprintf(&b, "%s %s%s %s (%s)\n",
			tx.Date.Format("02.01"), sign, core.FormatCents(tx.AmountCents),
			tx.Description, tx.Category.RuName())
	}
	return Outcome{
		Summary:  b.String(),
		Metadata: map[string]any{log.FieldItemCount: len(txs)},
	}, nil
}

func (h *BudgetHandler) createGoal(ctx context.Context, in Input, rec budgetRecord) (Outcome, error) {
	if rec.GoalName == "" || rec.Amount == nil || *rec.Amount <= 0 {
		return Outcome{Summary: "Не удалось распознать цель. Назовите цель и сумму, которую хотите накопить."}, nil
	}

	var deadline *time.Time
	if rec.Deadline != "" {
		if d, err := time.ParseInLocation("2006-01-02", rec.Deadline, time.Local); err == nil {
			deadline = &d
		}
	}

	goal, err := core.NewGoal(rec.GoalName, core.CentsFromFloat(*rec.Amount),
		in.FamilyID, in.UserID, deadline, core.ParsePriority(rec.Priority), "")
	if err != nil {
		return Outcome{}, err
	}
	if err := h.store.SaveGoal(ctx, goal); err != nil {
		return Outcome{}, err
	}

	summary := fmt.Sprintf("Цель «%s» создана: %s.", goal.Name, core.FormatCents(goal.TargetCents))
	if contribution := goal.MonthlyContribution(h.now()); contribution != nil && *contribution > 0 {
		summary += fmt.Sprintf(" Чтобы успеть к сроку, откладывайте %s в месяц.",
			core.FormatCents(*contribution))
	}
	return Outcome{
		Summary:  summary,
		Metadata: map[string]any{log.FieldGoalID: goal.ID},
	}, nil
}

func (h *BudgetHandler) updateGoal(ctx context.Context, in Input, rec budgetRecord) (Outcome, error) {
	if rec.GoalName == "" || rec.Amount == nil || *rec.Amount <= 0 {
		return Outcome{Summary: "Не удалось распознать пополнение цели. Назовите цель и сумму."}, nil
	}

	goal, err := h.store.GoalByName(ctx, in.FamilyID, rec.GoalName)
	if errors.Is(err, core.ErrGoalNotFound) {
		return Outcome{Summary: fmt.Sprintf("Цель «%s» не найдена.", rec.GoalName)}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	goal.AddProgress(core.CentsFromFloat(*rec.Amount))
	if err := h.store.SaveGoal(ctx, goal); err != nil {
		return Outcome{}, err
	}

	summary := fmt.Sprintf("Цель «%s»: накоплено %s из %s (%.0f%%).",
		goal.Name, core.FormatCents(goal.CurrentCents),
		core.FormatCents(goal.TargetCents), goal.Progress())
	if goal.Completed() {
		summary += " Цель достигнута, поздравляю!"
	}
	return Outcome{
		Summary:  summary,
		Metadata: map[string]any{log.FieldGoalID: goal.ID, "completed": goal.Completed()},
	}, nil
}

func (h *BudgetHandler) viewGoals(ctx context.Context, in Input) (Outcome, error) {
	goals, err := h.store.ListGoals(ctx, in.FamilyID)
	if err != nil {
		return Outcome{}, err
	}
	if len(goals) == 0 {
		return Outcome{Summary: "Финансовых целей пока нет."}, nil
	}

	now := h.now()
	var b strings.Builder
	b.WriteString("Финансовые цели:\n")
	for _, g := range goals {
		fmt.Fprintf(&b, "«%s»: %s из %s (%.0f%%), приоритет: %s\n",
			g.Name, core.FormatCents(g.CurrentCents), core.FormatCents(g.TargetCents),
			g.Progress(), g.Priority.RuName())
		if contribution := g.MonthlyContribution(now); contribution != nil && *contribution > 0 {
			fmt.Fprintf(&b, "  нужно откладывать %s в месяц\n", core.FormatCents(*contribution))
		}
	}
	return Outcome{
		Summary:  b.String(),
		Metadata: map[string]any{log.FieldItemCount: len(goals)},
	}, nil
}

func (h *BudgetHandler) viewReports(ctx context.Context, in Input) (Outcome, error) {
	now := h.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)

	txs, err := h.store.ListTransactions(ctx, in.FamilyID, TransactionFilter{From: from, To: now})
	if err != nil {
		return Outcome{}, err
	}
	s := core.SummarizeTransactions(txs)
	if s.Count == 0 {
		return Outcome{Summary: "За этот месяц операций не было."}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Отчёт за месяц: %d операций.\nДоходы: %s, расходы: %s, баланс: %s.\n",
		s.Count, core.FormatCents(s.TotalIncomeCents),
		core.FormatCents(s.TotalExpenseCents), core.FormatCents(s.BalanceCents))
	if s.Overspent {
		b.WriteString("Расходы превысили доходы.\n")
	} else if s.TotalIncomeCents > 0 {
		fmt.Fprintf(&b, "Сбережения: %.0f%% дохода.\n", s.SavingsPercentage)
	}
	for _, ca := range s.Categories {
		fmt.Fprintf(&b, "%s %s: %s (%.0f%%)\n",
			ca.Category.Icon(), ca.Category.RuName(),
			core.FormatCents(ca.AmountCents), ca.Percentage)
	}

	return Outcome{
		Summary:  b.String(),
		Metadata: map[string]any{log.FieldItemCount: s.Count, "overspent": s.Overspent},
	}, nil
}
