package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jarvis/internal/core"
	"jarvis/internal/llm"
	"jarvis/internal/log"
)

// Shopping domain intents.
const (
	IntentCreateList     = "create_list"
	IntentAddItem        = "add_item"
	IntentViewList       = "view_list"
	IntentMarkPurchased  = "mark_purchased"
	IntentRemoveItem     = "remove_item"
	IntentClearList      = "clear_list"
	IntentChangePriority = "change_priority"
)

var shoppingIntents = []string{
	IntentCreateList, IntentAddItem, IntentViewList, IntentMarkPurchased,
	IntentRemoveItem, IntentClearList, IntentChangePriority,
}

// shoppingRecord holds the fields the shopping extraction schemas can fill.
type shoppingRecord struct {
	ListName string   `json:"list_name"`
	ItemName string   `json:"item_name"`
	Quantity *float64 `json:"quantity"`
	Unit     string   `json:"unit"`
	Category string   `json:"category"`
	Priority string   `json:"priority"`
}

var listSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "list_name", Type: llm.TypeString, Description: "name for the shopping list"},
}}

var itemSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "item_name", Type: llm.TypeString, Required: true, Description: "what to buy"},
	{Name: "quantity", Type: llm.TypeNumber, Description: "how many or how much"},
	{Name: "unit", Type: llm.TypeString, Description: "unit of measurement, e.g. кг, шт, л"},
	{
		Name: "category", Type: llm.TypeString,
		Enum:        itemCategoryEnum(),
		Description: "grocery section",
	},
	{
		Name: "priority", Type: llm.TypeString,
		Enum:        []string{"low", "medium", "high", "urgent"},
		Description: "how urgent the purchase is",
	},
}}

var itemNameSchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "item_name", Type: llm.TypeString, Required: true, Description: "which item the user means"},
}}

var itemPrioritySchema = llm.Schema{Fields: []llm.SchemaField{
	{Name: "item_name", Type: llm.TypeString, Required: true, Description: "which item the user means"},
	{
		Name: "priority", Type: llm.TypeString, Required: true,
		Enum:        []string{"low", "medium", "high", "urgent"},
		Description: "new priority",
	},
}}

func itemCategoryEnum() []string {
	cats := core.ItemCategories()
	enum := make([]string, len(cats))
	for i, c := range cats {
		enum[i] = string(c)
	}
	return enum
}

// ShoppingHandler implements the shopping domain pipeline over the family's
// active shopping list.
type ShoppingHandler struct {
	store     ShoppingRepository
	extractor *llm.Extractor
	client    llm.Client
	threshold float64
	logger    *log.Logger
	locks     *familyLocks
}

// NewShoppingHandler wires the shopping pipeline.
func NewShoppingHandler(store ShoppingRepository, extractor *llm.Extractor, client llm.Client, threshold float64, logger *log.Logger) *ShoppingHandler {
	return &ShoppingHandler{
		store:     store,
		extractor: extractor,
		client:    client,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentPipeline),
		locks:     newFamilyLocks(),
	}
}

func (h *ShoppingHandler) Domain() string { return DomainShopping }

func (h *ShoppingHandler) Classify(ctx context.Context, in Input) (Classification, error) {
	return classifyIntent(ctx, h.extractor, DomainShopping, shoppingIntents, h.threshold, in)
}

func (h *ShoppingHandler) Extract(ctx context.Context, in Input, c Classification) (shoppingRecord, error) {
	var schema llm.Schema
	var task string

	switch c.Intent {
	case IntentCreateList:
		schema, task = listSchema, "Extract the shopping list name from the user's message."
	case IntentAddItem:
		schema, task = itemSchema, "Extract the shopping item details from the user's message."
	case IntentMarkPurchased, IntentRemoveItem:
		schema, task = itemNameSchema, "Extract which shopping item the user refers to."
	case IntentChangePriority:
		schema, task = itemPrioritySchema, "Extract the item and its new priority from the user's message."
	default:
		return shoppingRecord{}, nil
	}

	rec := llm.Extract(ctx, h.extractor, schema, task, in.Text, shoppingRecord{})
	return rec, nil
}

// Execute holds the family lock for the whole operation so concurrent
// messages cannot interleave between reading the list and writing it back.
func (h *ShoppingHandler) Execute(ctx context.Context, in Input, c Classification, rec shoppingRecord) (Outcome, error) {
	defer h.locks.Lock(in.FamilyID)()

	switch c.Intent {
	case IntentCreateList:
		return h.createList(ctx, in, rec)
	case IntentAddItem:
		return h.addItem(ctx, in, rec)
	case IntentViewList:
		return h.viewList(ctx, in)
	case IntentMarkPurchased:
		return h.markPurchased(ctx, in, rec)
	case IntentRemoveItem:
		return h.removeItem(ctx, in, rec)
	case IntentClearList:
		return h.clearList(ctx, in)
	case IntentChangePriority:
		return h.changePriority(ctx, in, rec)
	}
	return Outcome{}, NotApplicable
}

func (h *ShoppingHandler) Respond(ctx context.Context, in Input, c Classification, out Outcome) (string, error) {
	return phrase(ctx, h.client, c.Intent, out.Summary)
}

// activeList fetches the family's active list, creating one on first use
// for intents that need somewhere to put an item.
func (h *ShoppingHandler) activeList(ctx context.Context, in Input, createIfMissing bool) (*core.ShoppingList, error) {
	l, err := h.store.ActiveList(ctx, in.FamilyID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, core.ErrListNotFound) || !createIfMissing {
		return nil, err
	}

	l = core.NewShoppingList("Список покупок", in.FamilyID, in.UserID)
	if err := h.store.SaveList(ctx, l); err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "created shopping list",
		log.FieldOperation, log.OpCreate,
		log.FieldFamilyID, in.FamilyID,
		log.FieldListID, l.ID)
	return l, nil
}

func (h *ShoppingHandler) createList(ctx context.Context, in Input, rec shoppingRecord) (Outcome, error) {
	if existing, err := h.store.ActiveList(ctx, in.FamilyID); err == nil {
		return Outcome{
			Summary:  fmt.Sprintf("Активный список уже есть: «%s» (%d позиций).", existing.Name, len(existing.Items)),
			Metadata: map[string]any{log.FieldListID: existing.ID},
		}, nil
	} else if !errors.Is(err, core.ErrListNotFound) {
		return Outcome{}, err
	}

	name := rec.ListName
	if name == "" {
		name = "Список покупок"
	}
	l := core.NewShoppingList(name, in.FamilyID, in.UserID)
	if err := h.store.SaveList(ctx, l); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Summary:  fmt.Sprintf("Список «%s» создан.", l.Name),
		Metadata: map[string]any{log.FieldListID: l.ID},
	}, nil
}

func (h *ShoppingHandler) addItem(ctx context.Context, in Input, rec shoppingRecord) (Outcome, error) {
	if rec.ItemName == "" {
		return Outcome{Summary: "Не удалось распознать, что добавить в список. Назовите товар."}, nil
	}

	l, err := h.activeList(ctx, in, true)
	if err != nil {
		return Outcome{}, err
	}

	quantity := 0.0
	if rec.Quantity != nil {
		quantity = *rec.Quantity
	}
	item, err := core.NewShoppingItem(rec.ItemName, quantity, rec.Unit,
		core.ParseItemCategory(rec.Category), core.ParsePriority(rec.Priority))
	if err != nil {
		return Outcome{}, err
	}
	l.AddItem(item)
	if err := h.store.SaveList(ctx, l); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Summary: fmt.Sprintf("«%s» добавлен в список «%s». Всего позиций: %d.",
			item.Name, l.Name, len(l.Items)),
		Metadata: map[string]any{
			log.FieldListID:    l.ID,
			log.FieldItemCount: len(l.Items),
		},
	}, nil
}

func (h *ShoppingHandler) viewList(ctx context.Context, in Input) (Outcome, error) {
	l, err := h.activeList(ctx, in, false)
	if errors.Is(err, core.ErrListNotFound) {
		return Outcome{Summary: "Активного списка покупок нет. Скажите «создай список», чтобы начать."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if l.Empty() {
		return Outcome{Summary: fmt.Sprintf("Список «%s» пуст.", l.Name)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "«%s»: куплено %.0f%%.\n", l.Name, l.Progress()*100)
	for category, items := range l.ItemsByCategory() {
		fmt.Fprintf(&b, "%s:\n", category.RuName())
		for _, item := range items {
			mark := " "
			if item.Purchased {
				mark = "✓"
			}
			fmt.Fprintf(&b, " [%s] %s", mark, item.Name)
			if item.Quantity > 0 && item.Unit != "" {
				fmt.Fprintf(&b, " (%.0f %s)", item.Quantity, item.Unit)
			}
			b.WriteString("\n")
		}
	}

	return Outcome{
		Summary: b.String(),
		Metadata: map[string]any{
			log.FieldListID:    l.ID,
			log.FieldItemCount: len(l.Items),
		},
	}, nil
}

func (h *ShoppingHandler) markPurchased(ctx context.Context, in Input, rec shoppingRecord) (Outcome, error) {
	if rec.ItemName == "" {
		return Outcome{Summary: "Не удалось распознать, что отметить купленным."}, nil
	}

	l, err := h.activeList(ctx, in, false)
	if errors.Is(err, core.ErrListNotFound) {
		return Outcome{Summary: "Активного списка покупок нет."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	item := l.FindItem(rec.ItemName)
	if item == nil {
		return Outcome{Summary: fmt.Sprintf("«%s» в списке не нашлось.", rec.ItemName)}, nil
	}
	item.MarkPurchased(in.UserID)
	if err := h.store.SaveList(ctx, l); err != nil {
		return Outcome{}, err
	}

	summary := fmt.Sprintf("«%s» отмечен купленным. Осталось позиций: %d.",
		item.Name, len(l.UnpurchasedItems()))
	if l.Completed() {
		summary = fmt.Sprintf("«%s» отмечен купленным. Список «%s» полностью закрыт!", item.Name, l.Name)
	}
	return Outcome{
		Summary:  summary,
		Metadata: map[string]any{log.FieldListID: l.ID, "completed": l.Completed()},
	}, nil
}

func (h *ShoppingHandler) removeItem(ctx context.Context, in Input, rec shoppingRecord) (Outcome, error) {
	if rec.ItemName == "" {
		return Outcome{Summary: "Не удалось распознать, что убрать из списка."}, nil
	}

	l, err := h.activeList(ctx, in, false)
	if errors.Is(err, core.ErrListNotFound) {
		return Outcome{Summary: "Активного списка покупок нет."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	item := l.FindItem(rec.ItemName)
	if item == nil {
		return Outcome{Summary: fmt.Sprintf("«%s» в списке не нашлось.", rec.ItemName)}, nil
	}
	name := item.Name
	l.RemoveItem(item.ID)
	if err := h.store.SaveList(ctx, l); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Summary:  fmt.Sprintf("«%s» убран из списка. Осталось позиций: %d.", name, len(l.Items)),
		Metadata: map[string]any{log.FieldListID: l.ID, log.FieldItemCount: len(l.Items)},
	}, nil
}

func (h *ShoppingHandler) clearList(ctx context.Context, in Input) (Outcome, error) {
	l, err := h.activeList(ctx, in, false)
	if errors.Is(err, core.ErrListNotFound) {
		return Outcome{Summary: "Активного списка покупок нет."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	removed := l.ClearPurchased()
	if err := h.store.SaveList(ctx, l); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Summary: fmt.Sprintf("Убрано купленных позиций: %d. В списке осталось: %d.",
			removed, len(l.Items)),
		Metadata: map[string]any{log.FieldListID: l.ID, "removed": removed},
	}, nil
}

func (h *ShoppingHandler) changePriority(ctx context.Context, in Input, rec shoppingRecord) (Outcome, error) {
	if rec.ItemName == "" || rec.Priority == "" {
		return Outcome{Summary: "Не удалось распознать, какому товару сменить приоритет."}, nil
	}

	l, err := h.activeList(ctx, in, false)
	if errors.Is(err, core.ErrListNotFound) {
		return Outcome{Summary: "Активного списка покупок нет."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	item := l.FindItem(rec.ItemName)
	if item == nil {
		return Outcome{Summary: fmt.Sprintf("«%s» в списке не нашлось.", rec.ItemName)}, nil
	}
	item.Priority = core.ParsePriority(rec.Priority)
	if err := h.store.SaveList(ctx, l); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Summary: fmt.Sprintf("Приоритет «%s» изменён на «%s».",
			item.Name, item.Priority.RuName()),
		Metadata: map[string]any{log.FieldListID: l.ID},
	}, nil
}
