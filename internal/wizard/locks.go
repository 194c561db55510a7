package wizard

import "sync"

// Locks serializes work per conversation. Entries are reference counted and
// dropped when the last holder unlocks.
type Locks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{entries: make(map[int64]*lockEntry)}
}

// Lock blocks until the conversation is free and returns its unlock func.
func (l *Locks) Lock(conversationID int64) func() {
	l.mu.Lock()
	e, ok := l.entries[conversationID]
	if !ok {
		e = &lockEntry{}
		l.entries[conversationID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, conversationID)
		}
		l.mu.Unlock()
	}
}
