package store

import "sync"

// Unlimited disables credit accounting for a chatbot.
const Unlimited = -1

// MemoryCredits tracks message credits per chatbot. Every billed turn costs
// one credit; the charge happens exactly once per completed turn.
type MemoryCredits struct {
	mu       sync.Mutex
	balances map[string]int
	initial  int
}

func NewMemoryCredits(initial int) *MemoryCredits {
	return &MemoryCredits{balances: make(map[string]int), initial: initial}
}

// Balance returns the chatbot's remaining credits, seeding new chatbots with
// the initial grant.
func (c *MemoryCredits) Balance(chatbotID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceLocked(chatbotID)
}

func (c *MemoryCredits) balanceLocked(chatbotID string) int {
	if b, ok := c.balances[chatbotID]; ok {
		return b
	}
	c.balances[chatbotID] = c.initial
	return c.initial
}

// Decrement charges one credit, flooring at zero. Unlimited balances are
// never charged.
func (c *MemoryCredits) Decrement(chatbotID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.balanceLocked(chatbotID)
	if b == Unlimited || b == 0 {
		return
	}
	c.balances[chatbotID] = b - 1
}
