package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartStore keeps the per-conversation cart between turns.
type CartStore interface {
	Get(ctx context.Context, conversationID string) (Cart, error)
	Put(ctx context.Context, conversationID string, cart Cart) error
	Delete(ctx context.Context, conversationID string) error
}

// OrderStore is the durable home of submitted orders.
type OrderStore interface {
	SaveOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
}

// LedgerClient appends a submitted order to an external spreadsheet-style
// ledger. Fire-and-forget from this package's perspective.
type LedgerClient interface {
	AppendRow(ctx context.Context, sheetID, sheetName string, row []string) error
}

// EventPublisher announces submitted orders on a broker, best effort.
type EventPublisher interface {
	PublishOrder(ctx context.Context, o Order) error
}

// NotFound is the structured miss result for catalog lookups.
type NotFound struct {
	Kind  string // "category", "item"
	Query string
}

// SubmitError is a structured validation failure; the conversation continues.
type SubmitError struct {
	Code string // "empty_cart", "invalid_table", "unknown_item", "item_unavailable"
	Ref  string
}

// Service drives the category/menu/item/cart/order state machine. The state
// graph is advisory: any operation is callable at any time as long as the
// referenced IDs exist.
type Service struct {
	carts  CartStore
	orders OrderStore
	log    zerolog.Logger

	// Ledger and Events are optional best-effort sinks; their failures are
	// observed only by the logger.
	Ledger LedgerClient
	Events EventPublisher

	now    func() time.Time
	newID  func() string
	detach func(func())
}

func NewService(carts CartStore, orders OrderStore, log zerolog.Logger) *Service {
	return &Service{
		carts:  carts,
		orders: orders,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
		detach: func(f func()) { go f() },
	}
}

// ResolveItem matches a catalog item by ID first, then by case-insensitive
// name.
func (s *Service) ResolveItem(cat *MenuCatalog, ref string) *MenuItem {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if item := cat.ItemByID(ref); item != nil {
		return item
	}
	for i := range cat.MenuItems {
		if strings.EqualFold(cat.MenuItems[i].Name, ref) {
			return &cat.MenuItems[i]
		}
	}
	return nil
}

// ItemsInCategory lists the catalog items of one resolved category.
func (s *Service) ItemsInCategory(cat *MenuCatalog, categoryQuery string) ([]MenuItem, *Category, *NotFound) {
	category := cat.ResolveCategory(categoryQuery)
	if category == nil {
		return nil, nil, &NotFound{Kind: "category", Query: categoryQuery}
	}
	var items []MenuItem
	for _, it := range cat.MenuItems {
		if it.CategoryID == category.ID {
			items = append(items, it)
		}
	}
	return items, category, nil
}

// AddToCart merges an item into the conversation's cart.
func (s *Service) AddToCart(ctx context.Context, conversationID string, cat *MenuCatalog, itemRef string, qty int) (Cart, *NotFound, error) {
	item := s.ResolveItem(cat, itemRef)
	if item == nil {
		return Cart{}, &NotFound{Kind: "item", Query: itemRef}, nil
	}
	cart, err := s.carts.Get(ctx, conversationID)
	if err != nil {
		return Cart{}, nil, fmt.Errorf("load cart: %w", err)
	}
	cart.Add(*item, qty)
	if err := s.carts.Put(ctx, conversationID, cart); err != nil {
		return Cart{}, nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil, nil
}

// ViewCart returns the conversation's current cart.
func (s *Service) ViewCart(ctx context.Context, conversationID string) (Cart, error) {
	cart, err := s.carts.Get(ctx, conversationID)
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// ResetCart discards the conversation's cart.
func (s *Service) ResetCart(ctx context.Context, conversationID string) error {
	return s.carts.Delete(ctx, conversationID)
}

// GetOrder loads a submitted order.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetOrder(ctx, id)
}

type SubmitParams struct {
	ConversationID string
	ChatbotID      string
	TableRef       string
	SourceChannel  string
	// Ledger target, from the chatbot's action metadata.
	SheetID   string
	SheetName string
}

// Submit validates the cart and creates the order. Validation order: table
// reference, item existence, item availability; first failure wins. The
// subtotal is computed from catalog prices, never from the cart's recorded
// ones. Once validation passes the confirmation is authoritative: persistence
// and external syncs may fail without rolling it back.
func (s *Service) Submit(ctx context.Context, cat *MenuCatalog, p SubmitParams) (*Order, *SubmitError, error) {
	cart, err := s.carts.Get(ctx, p.ConversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.Empty() {
		return nil, &SubmitError{Code: "empty_cart"}, nil
	}
	var table *Table
	if strings.TrimSpace(p.TableRef) != "" {
		table = cat.TableByRef(p.TableRef)
		if table == nil {
			return nil, &SubmitError{Code: "invalid_table", Ref: p.TableRef}, nil
		}
	}
	for _, line := range cart.Lines {
		if cat.ItemByID(line.ItemID) == nil {
			return nil, &SubmitError{Code: "unknown_item", Ref: line.ItemID}, nil
		}
	}
	var subtotal int64
	lines := make([]CartLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		item := cat.ItemByID(line.ItemID)
		if !item.Available {
			return nil, &SubmitError{Code: "item_unavailable", Ref: line.ItemID}, nil
		}
		subtotal += item.PriceCents * int64(line.Quantity)
		lines = append(lines, CartLine{
			ItemID:         item.ID,
			Name:           item.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: item.PriceCents,
		})
	}

	o := Order{
		ID:            s.newID(),
		ChatbotID:     p.ChatbotID,
		Lines:         lines,
		SubtotalCents: subtotal,
		Currency:      cat.Currency,
		Status:        StatusReceived,
		SourceChannel: p.SourceChannel,
		CreatedAt:     s.now().UTC(),
	}
	if table != nil {
		o.TableID = table.ID
	}

	// The user-facing confirmation is authoritative from here on.
	if err := s.orders.SaveOrder(ctx, o); err != nil {
		s.log.Error().Str("orderId", o.ID).Err(err).Msg("order persist failed, confirmation stands")
	}
	if err := s.carts.Delete(ctx, p.ConversationID); err != nil {
		s.log.Warn().Str("conversationId", p.ConversationID).Err(err).Msg("cart discard failed")
	}
	s.syncExternal(o, p)
	return &o, nil, nil
}

// syncExternal replicates the order to the ledger and the event broker as
// detached tasks. Failures reach the logging sink and nothing else.
func (s *Service) syncExternal(o Order, p SubmitParams) {
	if s.Ledger != nil && p.SheetID != "" {
		s.detach(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.Ledger.AppendRow(ctx, p.SheetID, p.SheetName, ledgerRow(o)); err != nil {
				s.log.Warn().Str("orderId", o.ID).Err(err).Msg("ledger sync failed")
			}
		})
	}
	if s.Events != nil {
		s.detach(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.Events.PublishOrder(ctx, o); err != nil {
				s.log.Warn().Str("orderId", o.ID).Err(err).Msg("order event publish failed")
			}
		})
	}
}

func ledgerRow(o Order) []string {
	summary := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		summary = append(summary, fmt.Sprintf("%dx %s", l.Quantity, l.Name))
	}
	return []string{
		o.ID,
		o.CreatedAt.Format(time.RFC3339),
		o.ChatbotID,
		o.TableID,
		strings.Join(summary, "; "),
		fmt.Sprintf("%d.%02d", o.SubtotalCents/100, o.SubtotalCents%100),
		o.Currency,
		o.SourceChannel,
	}
}
