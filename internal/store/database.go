package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"mesa-chat-backend/internal/db"
	"mesa-chat-backend/internal/order"
)

// DatabaseOrderStore persists submitted orders in Postgres.
type DatabaseOrderStore struct {
	db *db.DB
}

func NewDatabaseOrderStore(database *db.DB) *DatabaseOrderStore {
	return &DatabaseOrderStore{db: database}
}

func (s *DatabaseOrderStore) SaveOrder(ctx context.Context, o order.Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}
	query := `
		INSERT INTO orders (order_id, chatbot_id, table_id, lines, subtotal_cents, currency, status, source_channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.ExecContext(ctx, query,
		o.ID, o.ChatbotID, nullable(o.TableID), lines, o.SubtotalCents,
		o.Currency, string(o.Status), o.SourceChannel, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (s *DatabaseOrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	query := `
		SELECT order_id, chatbot_id, COALESCE(table_id, ''), lines, subtotal_cents, currency, status, source_channel, created_at
		FROM orders
		WHERE order_id = $1
	`
	var o order.Order
	var lines []byte
	var status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.ChatbotID, &o.TableID, &lines, &o.SubtotalCents,
		&o.Currency, &status, &o.SourceChannel, &o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}
	o.Status = order.Status(status)
	return &o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// MemoryOrderStore backs order persistence when no database is configured.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]order.Order)}
}

func (s *MemoryOrderStore) SaveOrder(_ context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *MemoryOrderStore) GetOrder(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}
