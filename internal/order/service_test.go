package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCartStore struct {
	mu    sync.Mutex
	carts map[string]Cart
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[string]Cart)}
}

func (f *fakeCartStore) Get(_ context.Context, cid string) (Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carts[cid], nil
}

func (f *fakeCartStore) Put(_ context.Context, cid string, c Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[cid] = c
	return nil
}

func (f *fakeCartStore) Delete(_ context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, cid)
	return nil
}

type fakeOrderStore struct {
	saved   []Order
	saveErr error
}

func (f *fakeOrderStore) SaveOrder(_ context.Context, o Order) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, o)
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (*Order, error) {
	for i := range f.saved {
		if f.saved[i].ID == id {
			return &f.saved[i], nil
		}
	}
	return nil, nil
}

type fakeLedger struct {
	rows [][]string
	err  error
}

func (f *fakeLedger) AppendRow(_ context.Context, sheetID, sheetName string, row []string) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

type fakePublisher struct {
	events []Order
	err    error
}

func (f *fakePublisher) PublishOrder(_ context.Context, o Order) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, o)
	return nil
}

// newTestService pins the clock and ID generator and runs detached syncs
// inline so tests observe them deterministically.
func newTestService(carts CartStore, orders OrderStore) *Service {
	s := NewService(carts, orders, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "order-1" }
	s.detach = func(f func()) { f() }
	return s
}

func TestAddToCartResolvesByName(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{})
	cat := testCatalog()

	cart, miss, err := svc.AddToCart(context.Background(), "c1", cat, "burger", 2)
	require.NoError(t, err)
	require.Nil(t, miss)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "i-burger", cart.Lines[0].ItemID)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestAddToCartUnknownItem(t *testing.T) {
	svc := newTestService(newFakeCartStore(), &fakeOrderStore{})
	_, miss, err := svc.AddToCart(context.Background(), "c1", testCatalog(), "sushi", 1)
	require.NoError(t, err)
	require.NotNil(t, miss)
	assert.Equal(t, "item", miss.Kind)
	assert.Equal(t, "sushi", miss.Query)
}

func TestItemsInCategory(t *testing.T) {
	svc := newTestService(newFakeCartStore(), &fakeOrderStore{})
	cat := testCatalog()

	items, category, miss := svc.ItemsInCategory(cat, "Starters")
	require.Nil(t, miss)
	assert.Equal(t, "cat-app", category.ID)
	assert.Empty(t, items)

	items, category, miss = svc.ItemsInCategory(cat, "beverages")
	require.Nil(t, miss)
	assert.Equal(t, "cat-drink", category.ID)
	require.Len(t, items, 1)
	assert.Equal(t, "Cola", items[0].Name)

	_, _, miss = svc.ItemsInCategory(cat, "breakfast")
	require.NotNil(t, miss)
	assert.Equal(t, "category", miss.Kind)
}

func TestSubmitEmptyCart(t *testing.T) {
	svc := newTestService(newFakeCartStore(), &fakeOrderStore{})
	o, fail, err := svc.Submit(context.Background(), testCatalog(), SubmitParams{ConversationID: "c1"})
	require.NoError(t, err)
	assert.Nil(t, o)
	require.NotNil(t, fail)
	assert.Equal(t, "empty_cart", fail.Code)
}

func TestSubmitInvalidTable(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{})
	cat := testCatalog()
	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Cola", 1)
	require.NoError(t, err)

	_, fail, err := svc.Submit(context.Background(), cat, SubmitParams{ConversationID: "c1", TableRef: "t99"})
	require.NoError(t, err)
	require.NotNil(t, fail)
	assert.Equal(t, "invalid_table", fail.Code)
	assert.Equal(t, "t99", fail.Ref)
}

func TestSubmitUnavailableItem(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{})
	cat := testCatalog()
	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Cheesecake", 1)
	require.NoError(t, err)

	_, fail, err := svc.Submit(context.Background(), cat, SubmitParams{ConversationID: "c1"})
	require.NoError(t, err)
	require.NotNil(t, fail)
	assert.Equal(t, "item_unavailable", fail.Code)
	assert.Equal(t, "i-cake", fail.Ref)
}

func TestSubmitSubtotalFromCatalogPrices(t *testing.T) {
	carts := newFakeCartStore()
	orders := &fakeOrderStore{}
	svc := newTestService(carts, orders)
	cat := testCatalog()

	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Burger", 2)
	require.NoError(t, err)
	// A stale cart price must not leak into the order subtotal.
	stale := carts.carts["c1"]
	stale.Lines[0].UnitPriceCents = 1
	carts.carts["c1"] = stale

	o, fail, err := svc.Submit(context.Background(), cat, SubmitParams{ConversationID: "c1", ChatbotID: "bot1", TableRef: "Table 1", SourceChannel: "chat"})
	require.NoError(t, err)
	require.Nil(t, fail)
	require.NotNil(t, o)
	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, int64(2500), o.SubtotalCents)
	assert.Equal(t, "t1", o.TableID)
	assert.Equal(t, StatusReceived, o.Status)
	assert.Equal(t, "EUR", o.Currency)
	require.Len(t, orders.saved, 1)

	// The cart is gone after submission.
	cart, err := svc.ViewCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestSubmitPersistFailureStillConfirms(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{saveErr: errors.New("db down")})
	cat := testCatalog()
	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Cola", 1)
	require.NoError(t, err)

	o, fail, err := svc.Submit(context.Background(), cat, SubmitParams{ConversationID: "c1"})
	require.NoError(t, err)
	require.Nil(t, fail)
	require.NotNil(t, o)
	assert.Equal(t, int64(350), o.SubtotalCents)
}

func TestSubmitSyncsLedgerAndEvents(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{})
	led := &fakeLedger{}
	pub := &fakePublisher{}
	svc.Ledger = led
	svc.Events = pub
	cat := testCatalog()
	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Burger", 2)
	require.NoError(t, err)
	_, _, err = svc.AddToCart(context.Background(), "c1", cat, "Cola", 1)
	require.NoError(t, err)

	o, fail, err := svc.Submit(context.Background(), cat, SubmitParams{
		ConversationID: "c1", ChatbotID: "bot1", SourceChannel: "chat",
		SheetID: "sheet-123", SheetName: "Orders",
	})
	require.NoError(t, err)
	require.Nil(t, fail)

	require.Len(t, led.rows, 1)
	row := led.rows[0]
	assert.Equal(t, o.ID, row[0])
	assert.Equal(t, "2x Burger; 1x Cola", row[4])
	assert.Equal(t, "28.50", row[5])

	require.Len(t, pub.events, 1)
	assert.Equal(t, o.ID, pub.events[0].ID)
}

func TestSubmitSyncFailuresNotSurfaced(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{})
	svc.Ledger = &fakeLedger{err: errors.New("sheet gone")}
	svc.Events = &fakePublisher{err: errors.New("broker gone")}
	cat := testCatalog()
	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Cola", 1)
	require.NoError(t, err)

	o, fail, err := svc.Submit(context.Background(), cat, SubmitParams{ConversationID: "c1", SheetID: "sheet-123"})
	require.NoError(t, err)
	require.Nil(t, fail)
	require.NotNil(t, o)
}

func TestSubmitNoLedgerWithoutSheetID(t *testing.T) {
	carts := newFakeCartStore()
	svc := newTestService(carts, &fakeOrderStore{})
	led := &fakeLedger{}
	svc.Ledger = led
	cat := testCatalog()
	_, _, err := svc.AddToCart(context.Background(), "c1", cat, "Cola", 1)
	require.NoError(t, err)

	_, _, err = svc.Submit(context.Background(), cat, SubmitParams{ConversationID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, led.rows)
}
