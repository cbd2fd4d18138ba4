package store

import (
	"context"
	"sync"

	"mesa-chat-backend/internal/order"
)

// MemoryCartStore holds per-conversation carts in process memory. Carts are
// transient by design: they die with the process and with order submission.
type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string]order.Cart
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]order.Cart)}
}

func (m *MemoryCartStore) Get(_ context.Context, conversationID string) (order.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart := m.carts[conversationID]
	out := order.Cart{Lines: make([]order.CartLine, len(cart.Lines))}
	copy(out.Lines, cart.Lines)
	return out, nil
}

func (m *MemoryCartStore) Put(_ context.Context, conversationID string, cart order.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := order.Cart{Lines: make([]order.CartLine, len(cart.Lines))}
	copy(stored.Lines, cart.Lines)
	m.carts[conversationID] = stored
	return nil
}

func (m *MemoryCartStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, conversationID)
	return nil
}
