package chat

import (
	"sync"
	"time"
)

// typingTTL expires typing entries whose stop event was lost.
const typingTTL = 6 * time.Second

// TypingRegistry tracks who is typing in which conversation, fed by the
// user_typing / user_stopped_typing socket events.
type TypingRegistry struct {
	mu sync.Mutex
	m  map[string]map[string]time.Time // conversationID -> userID -> started
}

func NewTypingRegistry() *TypingRegistry {
	return &TypingRegistry{m: make(map[string]map[string]time.Time)}
}

func (t *TypingRegistry) Start(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.m[conversationID] == nil {
		t.m[conversationID] = make(map[string]time.Time)
	}
	t.m[conversationID][userID] = time.Now()
}

func (t *TypingRegistry) Stop(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if users, ok := t.m[conversationID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(t.m, conversationID)
		}
	}
}

// Typing returns the users currently typing in a conversation, pruning
// entries older than the TTL.
func (t *TypingRegistry) Typing(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.m[conversationID]
	if !ok {
		return nil
	}
	cutoff := time.Now().Add(-typingTTL)
	var out []string
	for id, started := range users {
		if started.Before(cutoff) {
			delete(users, id)
			continue
		}
		out = append(out, id)
	}
	if len(users) == 0 {
		delete(t.m, conversationID)
	}
	return out
}

func (t *TypingRegistry) Clear() {
	t.mu.Lock()
	t.m = make(map[string]map[string]time.Time)
	t.mu.Unlock()
}
