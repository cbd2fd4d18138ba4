package store

import (
	"sync"
)

type Message struct {
	Role    string
	Content string
}

// MemoryStore keeps per-conversation message history, trimmed to a maximum
// length. Callers serialize turns per conversation; the store only guards
// against concurrent access from different conversations.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]Message
	maxMessages   int
}

func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string][]Message),
		maxMessages:   maxMessages,
	}
}

func (m *MemoryStore) Append(conversationID string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversationID] = append(m.conversations[conversationID], msg)
	m.trimLocked(conversationID)
}

func (m *MemoryStore) Get(conversationID string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.conversations[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// UserTurns counts the user messages recorded so far; the flow engine keys
// its first-turn behavior off this.
func (m *MemoryStore) UserTurns(conversationID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, msg := range m.conversations[conversationID] {
		if msg.Role == "user" {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Reset(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, conversationID)
}

func (m *MemoryStore) trimLocked(conversationID string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.conversations[conversationID]
	if len(msgs) > m.maxMessages {
		m.conversations[conversationID] = msgs[len(msgs)-m.maxMessages:]
	}
}
