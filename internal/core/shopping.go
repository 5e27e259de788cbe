package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemCategory groups shopping items for display.
type ItemCategory string

const (
	ItemGrocery      ItemCategory = "grocery"
	ItemFruits       ItemCategory = "fruits"
	ItemVegetables   ItemCategory = "vegetables"
	ItemDairy        ItemCategory = "dairy"
	ItemMeat         ItemCategory = "meat"
	ItemBakery       ItemCategory = "bakery"
	ItemFrozen       ItemCategory = "frozen"
	ItemHousehold    ItemCategory = "household"
	ItemPersonalCare ItemCategory = "personal_care"
	ItemOther        ItemCategory = "other"
)

var itemCategoryRuNames = map[ItemCategory]string{
	ItemGrocery:      "Бакалея",
	ItemFruits:       "Фрукты",
	ItemVegetables:   "Овощи",
	ItemDairy:        "Молочные продукты",
	ItemMeat:         "Мясо и рыба",
	ItemBakery:       "Хлебобулочные изделия",
	ItemFrozen:       "Замороженные продукты",
	ItemHousehold:    "Товары для дома",
	ItemPersonalCare: "Средства личной гигиены",
	ItemOther:        "Другое",
}

// RuName returns the Russian display name of the item category.
func (c ItemCategory) RuName() string {
	if name, ok := itemCategoryRuNames[c]; ok {
		return name
	}
	return itemCategoryRuNames[ItemOther]
}

// Valid reports whether c is a known item category.
func (c ItemCategory) Valid() bool {
	_, ok := itemCategoryRuNames[c]
	return ok
}

// ItemCategories lists every item category in display order.
func ItemCategories() []ItemCategory {
	return []ItemCategory{
		ItemGrocery, ItemFruits, ItemVegetables, ItemDairy, ItemMeat,
		ItemBakery, ItemFrozen, ItemHousehold, ItemPersonalCare, ItemOther,
	}
}

// ParseItemCategory maps a raw string onto an item category, falling back to
// "other".
func ParseItemCategory(s string) ItemCategory {
	c := ItemCategory(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return ItemOther
}

var (
	ErrEmptyItemName = errors.New("empty item name")
	ErrItemNotFound  = errors.New("item not found")
	ErrListNotFound  = errors.New("shopping list not found")
)

// ShoppingItem is one entry of a shopping list.
type ShoppingItem struct {
	ID         string
	Name       string
	Quantity   float64
	Unit       string
	Category   ItemCategory
	Priority   GoalPriority
	AssignedTo string
	Purchased  bool
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewShoppingItem builds a pending item with sane defaults.
func NewShoppingItem(name string, quantity float64, unit string, category ItemCategory, priority GoalPriority) (ShoppingItem, error) {
	if strings.TrimSpace(name) == "" {
		return ShoppingItem{}, ErrEmptyItemName
	}
	if quantity <= 0 {
		quantity = 1
	}
	if !category.Valid() {
		category = ItemOther
	}
	if !priority.Valid() {
		priority = PriorityMedium
	}
	now := time.Now()
	return ShoppingItem{
		ID:        uuid.NewString(),
		Name:      name,
		Quantity:  quantity,
		Unit:      unit,
		Category:  category,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkPurchased flags the item as bought, attributing it to the buyer when
// nobody was assigned.
func (i *ShoppingItem) MarkPurchased(byUserID string) {
	i.Purchased = true
	i.UpdatedAt = time.Now()
	if byUserID != "" && i.AssignedTo == "" {
		i.AssignedTo = byUserID
	}
}

// ShoppingList is an ordered collection of items owned by one family.
// At most one list per family is active at a time; derived values
// (unpurchased, progress) are computed on read, never cached.
type ShoppingList struct {
	ID        string
	Name      string
	FamilyID  string
	Items     []ShoppingItem
	Active    bool
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewShoppingList builds an empty active list.
func NewShoppingList(name, familyID, createdBy string) *ShoppingList {
	now := time.Now()
	return &ShoppingList{
		ID:        uuid.NewString(),
		Name:      name,
		FamilyID:  familyID,
		Active:    true,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem appends an item to the list.
func (l *ShoppingList) AddItem(item ShoppingItem) {
	l.Items = append(l.Items, item)
	l.UpdatedAt = time.Now()
}

// RemoveItem deletes the item with the given id, reporting whether it existed.
func (l *ShoppingList) RemoveItem(itemID string) bool {
	for idx, item := range l.Items {
		if item.ID == itemID {
			l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
			l.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Item returns a pointer to the item with the given id, or nil.
func (l *ShoppingList) Item(itemID string) *ShoppingItem {
	for idx := range l.Items {
		if l.Items[idx].ID == itemID {
			return &l.Items[idx]
		}
	}
	return nil
}

// FindItem returns the first item whose name contains the query,
// case-insensitively.
func (l *ShoppingList) FindItem(name string) *ShoppingItem {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil
	}
	for idx := range l.Items {
		if strings.Contains(strings.ToLower(l.Items[idx].Name), query) {
			return &l.Items[idx]
		}
	}
	return nil
}

// UnpurchasedItems returns the items still to buy, in list order.
func (l *ShoppingList) UnpurchasedItems() []ShoppingItem {
	var out []ShoppingItem
	for _, item := range l.Items {
		if !item.Purchased {
			out = append(out, item)
		}
	}
	return out
}

// PurchasedItems returns the bought items, in list order.
func (l *ShoppingList) PurchasedItems() []ShoppingItem {
	var out []ShoppingItem
	for _, item := range l.Items {
		if item.Purchased {
			out = append(out, item)
		}
	}
	return out
}

// ItemsByCategory groups items by category, omitting empty groups.
func (l *ShoppingList) ItemsByCategory() map[ItemCategory][]ShoppingItem {
	out := make(map[ItemCategory][]ShoppingItem)
	for _, item := range l.Items {
		out[item.Category] = append(out[item.Category], item)
	}
	return out
}

// MarkAllPurchased flags every pending item as bought.
func (l *ShoppingList) MarkAllPurchased(byUserID string) {
	for idx := range l.Items {
		if !l.Items[idx].Purchased {
			l.Items[idx].MarkPurchased(byUserID)
		}
	}
	l.UpdatedAt = time.Now()
}

// ClearPurchased removes bought items and returns how many were dropped.
func (l *ShoppingList) ClearPurchased() int {
	remaining := l.UnpurchasedItems()
	removed := len(l.Items) - len(remaining)
	if removed > 0 {
		l.Items = remaining
		l.UpdatedAt = time.Now()
	}
	return removed
}

// Empty reports whether the list has no items.
func (l *ShoppingList) Empty() bool {
	return len(l.Items) == 0
}

// Completed reports whether every item is bought; empty lists are not
// completed.
func (l *ShoppingList) Completed() bool {
	if l.Empty() {
		return false
	}
	for _, item := range l.Items {
		if !item.Purchased {
			return false
		}
	}
	return true
}

// Progress returns the bought fraction in [0,1]; an empty list counts as
// done.
func (l *ShoppingList) Progress() float64 {
	if l.Empty() {
		return 1.0
	}
	return float64(len(l.PurchasedItems())) / float64(len(l.Items))
}

// Clone returns a deep copy with its own item slice.
func (l *ShoppingList) Clone() *ShoppingList {
	cp := *l
	cp.Items = make([]ShoppingItem, len(l.Items))
	copy(cp.Items, l.Items)
	return &cp
}
