// Package storage implements the dialogue repositories on SQLite. One file
// holds all four ports; writes run in immediate transactions so concurrent
// messages of the same family serialize at the database.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"jarvis/internal/core"
	"jarvis/internal/ports"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite-backed implementation of ports.Store.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed, brings the schema up to date
// and returns a ready store. The DSN forces immediate transaction locking
// so writers queue instead of failing on busy.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := migrateSchema(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// migrateSchema applies the embedded migrations over a connection of its
// own, opened and closed before the store's pool exists, so the migration
// lock cannot collide with it.
func migrateSchema(dbPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open for migration: %w", err)
	}
	defer db.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBudget upserts the budget row and rewrites its category rows in one
// transaction.
func (s *Store) SaveBudget(ctx context.Context, b *core.Budget) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (id, family_id, name, period_start, period_end, currency,
			income_plan_cents, income_actual_cents, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			income_plan_cents = excluded.income_plan_cents,
			income_actual_cents = excluded.income_actual_cents,
			updated_at = excluded.updated_at`,
		b.ID, b.FamilyID, b.Name, b.PeriodStart.Unix(), b.PeriodEnd.Unix(), b.Currency,
		b.IncomePlanCents, b.IncomeActualCents, b.CreatedBy, b.CreatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_budgets WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear category budgets: %w", err)
	}
	for _, cb := range b.Categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO category_budgets (budget_id, category, limit_cents, spent_cents)
			VALUES (?, ?, ?, ?)`,
			b.ID, string(cb.Category), cb.LimitCents, cb.SpentCents)
		if err != nil {
			return fmt.Errorf("insert category budget: %w", err)
		}
	}

	return tx.Commit()
}

const budgetColumns = `id, family_id, name, period_start, period_end, currency,
	income_plan_cents, income_actual_cents, created_by, created_at, updated_at`

func (s *Store) scanBudget(ctx context.Context, row *sql.Row) (*core.Budget, error) {
	var b core.Budget
	var start, end, createdAt, updatedAt int64
	err := row.Scan(&b.ID, &b.FamilyID, &b.Name, &start, &end, &b.Currency,
		&b.IncomePlanCents, &b.IncomeActualCents, &b.CreatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan budget: %w", err)
	}
	b.PeriodStart = time.Unix(start, 0)
	b.PeriodEnd = time.Unix(end, 0)
	b.CreatedAt = time.Unix(createdAt, 0)
	b.UpdatedAt = time.Unix(updatedAt, 0)

	if err := s.loadCategories(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) loadCategories(ctx context.Context, b *core.Budget) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, limit_cents, spent_cents
		FROM category_budgets WHERE budget_id = ?`, b.ID)
	if err != nil {
		return fmt.Errorf("load category budgets: %w", err)
	}
	defer rows.Close()

	b.Categories = make(map[core.Category]*core.CategoryBudget)
	for rows.Next() {
		var cb core.CategoryBudget
		var category string
		if err := rows.Scan(&category, &cb.LimitCents, &cb.SpentCents); err != nil {
			return fmt.Errorf("scan category budget: %w", err)
		}
		cb.Category = core.Category(category)
		b.Categories[cb.Category] = &cb
	}
	return rows.Err()
}

// BudgetByID fetches one budget of the family.
func (s *Store) BudgetByID(ctx context.Context, familyID, id string) (*core.Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE family_id = ? AND id = ?`,
		familyID, id)
	return s.scanBudget(ctx, row)
}

// BudgetForDate returns the family budget whose period covers date.
func (s *Store) BudgetForDate(ctx context.Context, familyID string, date time.Time) (*core.Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE family_id = ? AND period_start <= ? AND period_end >= ?
		 LIMIT 1`,
		familyID, date.Unix(), date.Unix())
	return s.scanBudget(ctx, row)
}

// ListBudgets returns all budgets of the family, newest period first.
func (s *Store) ListBudgets(ctx context.Context, familyID string) ([]*core.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM budgets WHERE family_id = ? ORDER BY period_start DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan budget id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	budgets := make([]*core.Budget, 0, len(ids))
	for _, id := range ids {
		b, err := s.BudgetByID(ctx, familyID, id)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}

// SaveTransaction upserts a transaction.
func (s *Store) SaveTransaction(ctx context.Context, tx core.Transaction) error {
	tags, err := json.Marshal(tx.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, family_id, amount_cents, currency, category, type,
			description, date, created_by, tags, is_recurring, frequency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			description = excluded.description,
			date = excluded.date,
			tags = excluded.tags,
			is_recurring = excluded.is_recurring,
			frequency = excluded.frequency`,
		tx.ID, tx.FamilyID, tx.AmountCents, tx.Currency, string(tx.Category), string(tx.Type),
		tx.Description, tx.Date.Unix(), tx.CreatedBy, string(tags),
		boolToInt(tx.IsRecurring), string(tx.Frequency), tx.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, family_id, amount_cents, currency, category, type,
	description, date, created_by, tags, is_recurring, frequency, created_at`

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var tx core.Transaction
	var category, txType, frequency, tags string
	var date, createdAt int64
	var recurring int
	err := rows.Scan(&tx.ID, &tx.FamilyID, &tx.AmountCents, &tx.Currency, &category, &txType,
		&tx.Description, &date, &tx.CreatedBy, &tags, &recurring, &frequency, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Category = core.Category(category)
	tx.Type = core.TransactionType(txType)
	tx.Frequency = core.Frequency(frequency)
	tx.IsRecurring = recurring != 0
	tx.Date = time.Unix(date, 0)
	tx.CreatedAt = time.Unix(createdAt, 0)
	if err := json.Unmarshal([]byte(tags), &tx.Tags); err != nil {
		return tx, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the family's transaction events matching the
// filter, newest first. Recurring templates are excluded.
func (s *Store) ListTransactions(ctx context.Context, familyID string, filter ports.TransactionFilter) ([]core.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions
		WHERE family_id = ? AND is_recurring = 0`)
	args := []any{familyID}

	if !filter.From.IsZero() {
		sb.WriteString(" AND date >= ?")
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		sb.WriteString(" AND date <= ?")
		args = append(args, filter.To.Unix())
	}
	if filter.Category != "" {
		sb.WriteString(" AND category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Type != "" {
		sb.WriteString(" AND type = ?")
		args = append(args, string(filter.Type))
	}
	sb.WriteString(" ORDER BY date DESC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// RecurringDue returns due recurring templates across all families.
func (s *Store) RecurringDue(ctx context.Context, now time.Time, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE is_recurring = 1 AND date <= ? ORDER BY date`
	args := []any{now.Unix()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring due: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SaveGoal upserts a goal.
func (s *Store) SaveGoal(ctx context.Context, g *core.FinancialGoal) error {
	var deadline sql.NullInt64
	if g.Deadline != nil {
		deadline = sql.NullInt64{Int64: g.Deadline.Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, family_id, name, target_cents, current_cents, currency,
			start_date, deadline, created_by, priority, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			target_cents = excluded.target_cents,
			current_cents = excluded.current_cents,
			deadline = excluded.deadline,
			priority = excluded.priority,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		g.ID, g.FamilyID, g.Name, g.TargetCents, g.CurrentCents, g.Currency,
		g.StartDate.Unix(), deadline, g.CreatedBy, string(g.Priority), g.Notes,
		g.CreatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}

func scanGoal(rows *sql.Rows) (*core.FinancialGoal, error) {
	var g core.FinancialGoal
	var priority string
	var startDate, createdAt, updatedAt int64
	var deadline sql.NullInt64
	err := rows.Scan(&g.ID, &g.FamilyID, &g.Name, &g.TargetCents, &g.CurrentCents, &g.Currency,
		&startDate, &deadline, &g.CreatedBy, &priority, &g.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	g.Priority = core.GoalPriority(priority)
	g.StartDate = time.Unix(startDate, 0)
	g.CreatedAt = time.Unix(createdAt, 0)
	g.UpdatedAt = time.Unix(updatedAt, 0)
	if deadline.Valid {
		d := time.Unix(deadline.Int64, 0)
		g.Deadline = &d
	}
	return &g, nil
}

const goalColumns = `id, family_id, name, target_cents, current_cents, currency,
	start_date, deadline, created_by, priority, notes, created_at, updated_at`

// ListGoals returns the family's goals, oldest first.
func (s *Store) ListGoals(ctx context.Context, familyID string) ([]*core.FinancialGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE family_id = ? ORDER BY created_at`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []*core.FinancialGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// GoalByID fetches one goal of the family.
func (s *Store) GoalByID(ctx context.Context, familyID, id string) (*core.FinancialGoal, error) {
	goals, err := s.ListGoals(ctx, familyID)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, core.ErrGoalNotFound
}

// GoalByName finds a goal by case-insensitive name match, exact name first.
func (s *Store) GoalByName(ctx context.Context, familyID, name string) (*core.FinancialGoal, error) {
	goals, err := s.ListGoals(ctx, familyID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	var partial *core.FinancialGoal
	for _, g := range goals {
		haystack := strings.ToLower(g.Name)
		if haystack == needle {
			return g, nil
		}
		if partial == nil && strings.Contains(haystack, needle) {
			partial = g
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, core.ErrGoalNotFound
}

// SaveList upserts a shopping list and rewrites its items in one
// transaction. Saving an active list deactivates the family's other lists.
func (s *Store) SaveList(ctx context.Context, l *core.ShoppingList) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if l.Active {
		_, err := tx.ExecContext(ctx,
			`UPDATE shopping_lists SET active = 0 WHERE family_id = ? AND id != ?`,
			l.FamilyID, l.ID)
		if err != nil {
			return fmt.Errorf("deactivate other lists: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shopping_lists (id, family_id, name, active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		l.ID, l.FamilyID, l.Name, boolToInt(l.Active), l.CreatedBy,
		l.CreatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert shopping list: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_items WHERE list_id = ?`, l.ID); err != nil {
		return fmt.Errorf("clear shopping items: %w", err)
	}
	for i, item := range l.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shopping_items (id, list_id, position, name, quantity, unit,
				category, priority, assigned_to, purchased, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, l.ID, i, item.Name, item.Quantity, item.Unit,
			string(item.Category), string(item.Priority), item.AssignedTo,
			boolToInt(item.Purchased), item.Notes,
			item.CreatedAt.Unix(), item.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert shopping item: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) scanList(ctx context.Context, row *sql.Row) (*core.ShoppingList, error) {
	var l core.ShoppingList
	var active int
	var createdAt, updatedAt int64
	err := row.Scan(&l.ID, &l.FamilyID, &l.Name, &active, &l.CreatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan shopping list: %w", err)
	}
	l.Active = active != 0
	l.CreatedAt = time.Unix(createdAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, quantity, unit, category, priority, assigned_to, purchased,
			notes, created_at, updated_at
		FROM shopping_items WHERE list_id = ? ORDER BY position`, l.ID)
	if err != nil {
		return nil, fmt.Errorf("load shopping items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item core.ShoppingItem
		var category, priority string
		var purchased int
		var itemCreated, itemUpdated int64
		err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.Unit,
			&category, &priority, &item.AssignedTo, &purchased,
			&item.Notes, &itemCreated, &itemUpdated)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		item.Category = core.ItemCategory(category)
		item.Priority = core.GoalPriority(priority)
		item.Purchased = purchased != 0
		item.CreatedAt = time.Unix(itemCreated, 0)
		item.UpdatedAt = time.Unix(itemUpdated, 0)
		l.Items = append(l.Items, item)
	}
	return &l, rows.Err()
}

const listColumns = `id, family_id, name, active, created_by, created_at, updated_at`

// ActiveList returns the family's active shopping list.
func (s *Store) ActiveList(ctx context.Context, familyID string) (*core.ShoppingList, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists
		 WHERE family_id = ? AND active = 1 LIMIT 1`, familyID)
	return s.scanList(ctx, row)
}

// ListByID fetches one shopping list of the family.
func (s *Store) ListByID(ctx context.Context, familyID, id string) (*core.ShoppingList, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM shopping_lists
		 WHERE family_id = ? AND id = ?`, familyID, id)
	return s.scanList(ctx, row)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
