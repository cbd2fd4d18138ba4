package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"mesa-chat-backend/internal/order"
	"mesa-chat-backend/internal/provider"
	"mesa-chat-backend/internal/types"
)

// Tool names offered for the orders action.
const (
	GetCategoriesToolName  = "get_categories"
	GetMenuItemsToolName   = "get_menu_items"
	GetItemDetailsToolName = "get_item_details"
	AddToCartToolName      = "add_to_cart"
	ViewCartToolName       = "view_cart"
	SubmitOrderToolName    = "submit_order"
)

// NewOrderHandlers wires the order-management operations into the tool
// registry. All of them share the service and degrade domain misses into
// conversational results.
func NewOrderHandlers(svc *order.Service, log zerolog.Logger) []Handler {
	base := ordersBase{svc: svc, log: log}
	return []Handler{
		&categoriesHandler{base},
		&menuItemsHandler{base},
		&itemDetailsHandler{base},
		&addToCartHandler{base},
		&viewCartHandler{base},
		&submitOrderHandler{base},
	}
}

type ordersBase struct {
	svc *order.Service
	log zerolog.Logger
}

func (ordersBase) Kind() types.ActionKind { return types.ActionOrders }

func (b ordersBase) noCatalog(tc Context) (Result, bool) {
	if tc.Catalog != nil {
		return Result{}, false
	}
	b.log.Warn().Str("chatbot", tc.ChatbotID).Msg("orders tool called without a configured menu")
	return Result{Text: "Ordering isn't set up for this chat yet."}, true
}

func emptyObjectSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// --- get_categories

type categoriesHandler struct{ ordersBase }

func (h *categoriesHandler) Name() string { return GetCategoriesToolName }

func (h *categoriesHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        GetCategoriesToolName,
		Description: "List the menu categories the guest can browse.",
		Parameters:  emptyObjectSchema(),
	}
}

func (h *categoriesHandler) Execute(_ context.Context, _ map[string]any, tc Context) (Result, error) {
	if res, stop := h.noCatalog(tc); stop {
		return res, nil
	}
	cat := tc.Catalog
	names := make([]string, 0, len(cat.Categories))
	payload := make([]map[string]any, 0, len(cat.Categories))
	for _, c := range cat.Categories {
		name := cat.Localize(tc.Language, c.Name, c.Name)
		names = append(names, name)
		payload = append(payload, map[string]any{"id": c.ID, "name": name})
	}
	if len(names) == 0 {
		return Result{Text: cat.Localize(tc.Language, "msg.no_categories", "The menu is empty right now.")}, nil
	}
	lead := cat.Localize(tc.Language, "msg.categories", "Here's what's on the menu:")
	return Result{
		Text:    lead + " " + strings.Join(names, ", "),
		Payload: map[string]any{"categories": payload},
	}, nil
}

// --- get_menu_items

type menuItemsHandler struct{ ordersBase }

func (h *menuItemsHandler) Name() string { return GetMenuItemsToolName }

func (h *menuItemsHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        GetMenuItemsToolName,
		Description: "List the items of one menu category.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": map[string]any{"type": "string", "description": "Category ID or name, e.g. 'Starters'"},
			},
			"required": []any{"category"},
		},
	}
}

func (h *menuItemsHandler) Execute(_ context.Context, args map[string]any, tc Context) (Result, error) {
	if res, stop := h.noCatalog(tc); stop {
		return res, nil
	}
	cat := tc.Catalog
	query, _ := args["category"].(string)
	items, category, miss := h.svc.ItemsInCategory(cat, query)
	if miss != nil {
		return Result{
			Text:    cat.Localize(tc.Language, "msg.category_not_found", fmt.Sprintf("I couldn't find a %q category on the menu.", miss.Query)),
			Payload: map[string]any{"notFound": miss.Query},
		}, nil
	}
	if len(items) == 0 {
		return Result{Text: cat.Localize(tc.Language, "msg.category_empty", "That category has no items right now.")}, nil
	}
	lines := make([]string, 0, len(items))
	payload := make([]map[string]any, 0, len(items))
	for _, it := range items {
		name := cat.Localize(tc.Language, it.Name, it.Name)
		lines = append(lines, fmt.Sprintf("%s (%s)", name, cat.FormatPrice(it.PriceCents)))
		payload = append(payload, map[string]any{
			"id":        it.ID,
			"name":      name,
			"price":     cat.FormatPrice(it.PriceCents),
			"available": it.Available,
		})
	}
	lead := cat.Localize(tc.Language, "msg.menu_items", fmt.Sprintf("In %s we have:", cat.Localize(tc.Language, category.Name, category.Name)))
	return Result{
		Text:    lead + " " + strings.Join(lines, ", "),
		Payload: map[string]any{"category": category.ID, "items": payload},
	}, nil
}

// --- get_item_details

type itemDetailsHandler struct{ ordersBase }

func (h *itemDetailsHandler) Name() string { return GetItemDetailsToolName }

func (h *itemDetailsHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        GetItemDetailsToolName,
		Description: "Describe one menu item, its price and availability.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item": map[string]any{"type": "string", "description": "Item ID or name"},
			},
			"required": []any{"item"},
		},
	}
}

func (h *itemDetailsHandler) Execute(_ context.Context, args map[string]any, tc Context) (Result, error) {
	if res, stop := h.noCatalog(tc); stop {
		return res, nil
	}
	cat := tc.Catalog
	ref, _ := args["item"].(string)
	item := h.svc.ResolveItem(cat, ref)
	if item == nil {
		return Result{
			Text:    cat.Localize(tc.Language, "msg.item_not_found", fmt.Sprintf("I couldn't find %q on the menu.", ref)),
			Payload: map[string]any{"notFound": ref},
		}, nil
	}
	name := cat.Localize(tc.Language, item.Name, item.Name)
	desc := cat.Localize(tc.Language, item.Description, item.Description)
	text := fmt.Sprintf("%s - %s", name, cat.FormatPrice(item.PriceCents))
	if desc != "" {
		text += ". " + desc
	}
	if !item.Available {
		text += " " + cat.Localize(tc.Language, "msg.item_unavailable", "(currently unavailable)")
	}
	return Result{
		Text: text,
		Payload: map[string]any{
			"item": map[string]any{
				"id":        item.ID,
				"name":      name,
				"price":     cat.FormatPrice(item.PriceCents),
				"available": item.Available,
				"imageUrl":  item.ImageURL,
			},
		},
	}, nil
}

// --- add_to_cart

type addToCartHandler struct{ ordersBase }

func (h *addToCartHandler) Name() string { return AddToCartToolName }

func (h *addToCartHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        AddToCartToolName,
		Description: "Add a quantity of one menu item to the guest's cart.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"itemId":   map[string]any{"type": "string", "description": "Item ID or name"},
				"quantity": map[string]any{"type": "integer", "minimum": 1},
			},
			"required": []any{"itemId"},
		},
	}
}

func (h *addToCartHandler) Execute(ctx context.Context, args map[string]any, tc Context) (Result, error) {
	if res, stop := h.noCatalog(tc); stop {
		return res, nil
	}
	cat := tc.Catalog
	ref, _ := args["itemId"].(string)
	qty := 1
	if n, ok := args["quantity"].(float64); ok && n >= 1 {
		qty = int(n)
	}
	cart, miss, err := h.svc.AddToCart(ctx, tc.ConversationID, cat, ref, qty)
	if err != nil {
		return Result{}, err
	}
	if miss != nil {
		return Result{
			Text:    cat.Localize(tc.Language, "msg.item_not_found", fmt.Sprintf("I couldn't find %q on the menu.", miss.Query)),
			Payload: map[string]any{"notFound": miss.Query},
		}, nil
	}
	return Result{
		Text:    cat.Localize(tc.Language, "msg.added_to_cart", fmt.Sprintf("Added %dx %s. Your cart is now %s.", qty, ref, cat.FormatPrice(cart.SubtotalCents()))),
		Payload: map[string]any{"cart": cart},
	}, nil
}

// --- view_cart

type viewCartHandler struct{ ordersBase }

func (h *viewCartHandler) Name() string { return ViewCartToolName }

func (h *viewCartHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        ViewCartToolName,
		Description: "Show the guest's current cart.",
		Parameters:  emptyObjectSchema(),
	}
}

func (h *viewCartHandler) Execute(ctx context.Context, _ map[string]any, tc Context) (Result, error) {
	if res, stop := h.noCatalog(tc); stop {
		return res, nil
	}
	cat := tc.Catalog
	cart, err := h.svc.ViewCart(ctx, tc.ConversationID)
	if err != nil {
		return Result{}, err
	}
	if cart.Empty() {
		return Result{Text: cat.Localize(tc.Language, "msg.cart_empty", "Your cart is empty.")}, nil
	}
	lines := make([]string, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, fmt.Sprintf("%dx %s", l.Quantity, cat.Localize(tc.Language, l.Name, l.Name)))
	}
	text := cat.Localize(tc.Language, "msg.cart", "In your cart:") + " " +
		strings.Join(lines, ", ") + " - " + cat.FormatPrice(cart.SubtotalCents())
	return Result{Text: text, Payload: map[string]any{"cart": cart}}, nil
}

// --- submit_order

type submitOrderHandler struct{ ordersBase }

func (h *submitOrderHandler) Name() string { return SubmitOrderToolName }

func (h *submitOrderHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        SubmitOrderToolName,
		Description: "Submit the guest's cart as an order, optionally for a table.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"table": map[string]any{"type": "string", "description": "Table ID or name, if ordering at a table"},
			},
		},
	}
}

func (h *submitOrderHandler) Execute(ctx context.Context, args map[string]any, tc Context) (Result, error) {
	if res, stop := h.noCatalog(tc); stop {
		return res, nil
	}
	cat := tc.Catalog
	tableRef, _ := args["table"].(string)
	params := order.SubmitParams{
		ConversationID: tc.ConversationID,
		ChatbotID:      tc.ChatbotID,
		TableRef:       tableRef,
		SourceChannel:  "chat",
	}
	if desc := types.FirstEnabled(tc.Actions, types.ActionOrders); desc != nil {
		params.SheetID, _ = desc.Metadata["sheetId"].(string)
		params.SheetName, _ = desc.Metadata["sheetName"].(string)
	}
	o, fail, err := h.svc.Submit(ctx, cat, params)
	if err != nil {
		return Result{}, err
	}
	if fail != nil {
		return Result{Text: submitFailureText(cat, tc.Language, fail), Payload: map[string]any{"rejected": fail.Code}}, nil
	}
	text := cat.Localize(tc.Language, "msg.order_confirmed",
		fmt.Sprintf("Order received! Your order number is %s and the total is %s.", o.ID, cat.FormatPrice(o.SubtotalCents)))
	return Result{
		Text: text,
		Payload: map[string]any{
			"orderId":  o.ID,
			"subtotal": cat.FormatPrice(o.SubtotalCents),
			"status":   string(o.Status),
		},
	}, nil
}

func submitFailureText(cat *order.MenuCatalog, lang string, fail *order.SubmitError) string {
	switch fail.Code {
	case "empty_cart":
		return cat.Localize(lang, "msg.cart_empty", "Your cart is empty.")
	case "invalid_table":
		return cat.Localize(lang, "msg.invalid_table", fmt.Sprintf("I don't know table %q here.", fail.Ref))
	case "unknown_item":
		return cat.Localize(lang, "msg.unknown_item", fmt.Sprintf("An item in your cart (%s) is no longer on the menu.", fail.Ref))
	case "item_unavailable":
		return cat.Localize(lang, "msg.item_unavailable_cart", fmt.Sprintf("An item in your cart (%s) is currently unavailable.", fail.Ref))
	default:
		return cat.Localize(lang, "msg.order_rejected", "I couldn't submit that order.")
	}
}
