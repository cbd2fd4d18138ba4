package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mesa-chat-backend/internal/order"
)

// cartTTL bounds how long an abandoned cart survives.
const cartTTL = 24 * time.Hour

// RedisCartStore keeps carts in Redis so they survive process restarts and
// can be shared across instances.
type RedisCartStore struct {
	client *redis.Client
}

func NewRedisCartStore(addr string) *RedisCartStore {
	return &RedisCartStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func cartKey(conversationID string) string {
	return "cart:" + conversationID
}

func (r *RedisCartStore) Get(ctx context.Context, conversationID string) (order.Cart, error) {
	raw, err := r.client.Get(ctx, cartKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return order.Cart{}, nil
	}
	if err != nil {
		return order.Cart{}, fmt.Errorf("redis cart get: %w", err)
	}
	var cart order.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return order.Cart{}, fmt.Errorf("redis cart decode: %w", err)
	}
	return cart, nil
}

func (r *RedisCartStore) Put(ctx context.Context, conversationID string, cart order.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("redis cart encode: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(conversationID), raw, cartTTL).Err(); err != nil {
		return fmt.Errorf("redis cart set: %w", err)
	}
	return nil
}

func (r *RedisCartStore) Delete(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, cartKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("redis cart delete: %w", err)
	}
	return nil
}

func (r *RedisCartStore) Close() error {
	return r.client.Close()
}
