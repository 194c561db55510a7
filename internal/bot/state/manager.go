package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Manager keeps conversations in process memory. Records are stored encoded
// so callers never share mutable state with the store.
type Manager struct {
	conversations map[int64][]byte
	expires       map[int64]time.Time
	ttl           time.Duration
	now           func() time.Time
	mu            sync.RWMutex
}

// NewManager creates an in-memory store. A zero ttl keeps records until
// cleared.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		conversations: make(map[int64][]byte),
		expires:       make(map[int64]time.Time),
		ttl:           ttl,
		now:           time.Now,
	}
}

// Get returns the conversation of a chat
func (m *Manager) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	m.mu.RLock()
	data, exists := m.conversations[chatID]
	expires, hasTTL := m.expires[chatID]
	m.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if hasTTL && m.now().After(expires) {
		_ = m.Clear(ctx, chatID)
		return nil, nil
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

// Set stores the conversation of a chat
func (m *Manager) Set(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = m.now()
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conv.ChatID] = data
	if m.ttl > 0 {
		m.expires[conv.ChatID] = conv.UpdatedAt.Add(m.ttl)
	}
	return nil
}

// Clear removes the conversation of a chat
func (m *Manager) Clear(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, chatID)
	delete(m.expires, chatID)
	return nil
}
