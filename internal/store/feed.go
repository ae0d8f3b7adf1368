package store

import (
	"sync"

	"github.com/fanspace/fanspace-go/internal/models"
)

// Feed is the in-memory notification list of a session, most-recent-first.
// It mutates the session's notification counter through the cell handed to
// NewFeed; it never recounts its own entries.
type Feed struct {
	mu      sync.RWMutex
	entries []models.Notification
	unread  *Counter
}

func NewFeed(unread *Counter) *Feed {
	return &Feed{unread: unread}
}

// Add applies a pushed notification. new_message notifications are routed to
// the message counter elsewhere and never enter the feed. A repeated id is an
// update-and-bump: the entry is replaced in place and moved to the front
// without touching the counter.
func (f *Feed) Add(n models.Notification) {
	if n.Type == models.NotificationNewMessage {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.entries {
		if f.entries[i].ID == n.ID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			f.entries = append([]models.Notification{n}, f.entries...)
			return
		}
	}

	f.entries = append([]models.Notification{n}, f.entries...)
	f.unread.Increment()
}

// Replace swaps in a bulk-fetched list. The counter is synced separately from
// the server, never from len(list).
func (f *Feed) Replace(list []models.Notification) {
	f.mu.Lock()
	f.entries = append([]models.Notification(nil), list...)
	f.mu.Unlock()
}

// MarkRead flips a single entry. The counter drops only when the entry was
// actually unread.
func (f *Feed) MarkRead(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.entries {
		if f.entries[i].ID == id {
			if !f.entries[i].IsRead {
				f.entries[i].IsRead = true
				f.unread.Decrement()
			}
			return
		}
	}
}

// MarkAllRead flips every entry and zeroes the counter. Callers invoke this
// only after the server confirmed its own mark-all-read.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	for i := range f.entries {
		f.entries[i].IsRead = true
	}
	f.mu.Unlock()
	f.unread.Reset()
}

// Clear empties the feed on logout.
func (f *Feed) Clear() {
	f.mu.Lock()
	f.entries = nil
	f.mu.Unlock()
	f.unread.Reset()
}

// Entries returns a copy of the feed, most-recent-first.
func (f *Feed) Entries() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.Notification(nil), f.entries...)
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
