package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is an expense (or income) category of the family budget.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryHousing       Category = "housing"
	CategoryTransport     Category = "transport"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryHealthcare    Category = "healthcare"
	CategoryEducation     Category = "education"
	CategoryShopping      Category = "shopping"
	CategorySavings       Category = "savings"
	CategoryIncome        Category = "income"
	CategoryOther         Category = "other"
)

var categoryRuNames = map[Category]string{
	CategoryFood:          "Питание",
	CategoryHousing:       "Жильё",
	CategoryTransport:     "Транспорт",
	CategoryUtilities:     "Коммунальные услуги",
	CategoryEntertainment: "Развлечения",
	CategoryHealthcare:    "Здоровье",
	CategoryEducation:     "Образование",
	CategoryShopping:      "Покупки",
	CategorySavings:       "Сбережения",
	CategoryIncome:        "Доходы",
	CategoryOther:         "Другое",
}

var categoryIcons = map[Category]string{
	CategoryFood:          "🍽️",
	CategoryHousing:       "🏠",
	CategoryTransport:     "🚗",
	CategoryUtilities:     "💡",
	CategoryEntertainment: "🎭",
	CategoryHealthcare:    "🏥",
	CategoryEducation:     "📚",
	CategoryShopping:      "🛒",
	CategorySavings:       "💰",
	CategoryIncome:        "💵",
	CategoryOther:         "📦",
}

// RuName returns the Russian display name of the category.
func (c Category) RuName() string {
	if name, ok := categoryRuNames[c]; ok {
		return name
	}
	return categoryRuNames[CategoryOther]
}

// Icon returns the emoji used for the category in replies.
func (c Category) Icon() string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return categoryIcons[CategoryOther]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryRuNames[c]
	return ok
}

// ExpenseCategories lists the categories a spend can be classified into.
func ExpenseCategories() []Category {
	return []Category{
		CategoryFood, CategoryHousing, CategoryTransport, CategoryUtilities,
		CategoryEntertainment, CategoryHealthcare, CategoryEducation,
		CategoryShopping, CategorySavings, CategoryOther,
	}
}

// ParseCategory maps a raw string onto a known category, falling back to
// "other" for anything unrecognized.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// TransactionType distinguishes incomes from expenses.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// RuName returns the Russian display name of the transaction type.
func (t TransactionType) RuName() string {
	switch t {
	case TypeIncome:
		return "Доход"
	case TypeExpense:
		return "Расход"
	}
	return "Неизвестно"
}

// Frequency is how often a recurring transaction repeats.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Next returns the occurrence following date for this frequency. Unknown
// frequencies advance by a month.
func (f Frequency) Next(date time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return date.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return date.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return date.AddDate(0, 3, 0)
	case FrequencyYearly:
		return date.AddDate(1, 0, 0)
	}
	return date.AddDate(0, 1, 0)
}

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyFamily        = errors.New("empty family id")
	ErrIncomeCategory     = errors.New("income transactions must use the income category")
	ErrInvalidFrequency   = errors.New("invalid recurring frequency")
	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrTransactionOutside = errors.New("transaction outside budget period")
	ErrBudgetNotFound     = errors.New("budget not found")
)

// Transaction is an immutable financial event of one family.
type Transaction struct {
	ID          string
	AmountCents int64
	Currency    string
	Category    Category
	Type        TransactionType
	Description string
	Date        time.Time
	FamilyID    string
	CreatedBy   string
	Tags        []string
	IsRecurring bool
	Frequency   Frequency // set only when IsRecurring
	CreatedAt   time.Time
}

// Validate checks the transaction invariants: positive amount, family
// ownership, and the income/category coupling.
func (t Transaction) Validate() error {
	if t.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if t.Type == TypeIncome && t.Category != CategoryIncome {
		return ErrIncomeCategory
	}
	if t.IsRecurring && !t.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

// Money returns the transaction amount as Money.
func (t Transaction) Money() Money {
	currency := t.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Cents: t.AmountCents, Currency: currency}
}

// NewExpense builds an expense transaction dated now unless date is set.
func NewExpense(amountCents int64, category Category, description, familyID, createdBy string, date time.Time) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		AmountCents: amountCents,
		Currency:    DefaultCurrency,
		Category:    category,
		Type:        TypeExpense,
		Description: description,
		Date:        date,
		FamilyID:    familyID,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
}

// NewIncome builds an income transaction; the category is always "income".
func NewIncome(amountCents int64, description, familyID, createdBy string, date time.Time) Transaction {
	t := NewExpense(amountCents, CategoryIncome, description, familyID, createdBy, date)
	t.Type = TypeIncome
	return t
}
