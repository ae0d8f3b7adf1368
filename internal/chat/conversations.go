package chat

import (
	"sync"
	"time"

	"github.com/fanspace/fanspace-go/internal/models"
)

// List keeps the session's conversation cache consistent with the bulk fetch,
// locally sent messages and server-pushed message events. Most-recently-active
// conversation first.
type List struct {
	mu    sync.RWMutex
	convs []models.Conversation

	// refetch is invoked when a push references a conversation the cache does
	// not hold. The cache never synthesizes a conversation from a push.
	refetch func()
}

func NewList(refetch func()) *List {
	return &List{refetch: refetch}
}

// Load replaces the cache with a bulk-fetched list, dropping any pending
// placeholder.
func (l *List) Load(convs []models.Conversation) {
	l.mu.Lock()
	l.convs = append([]models.Conversation(nil), convs...)
	l.mu.Unlock()
}

// ApplyIncoming handles a new-message push from another participant: update
// the last-message snapshot, bump the current user's unread count and move the
// conversation to the front. Unknown conversation ids trigger one refetch.
func (l *List) ApplyIncoming(conversationID string, msg models.MessageSummary, userID string) {
	l.mu.Lock()
	i := l.index(conversationID)
	if i < 0 {
		l.mu.Unlock()
		if l.refetch != nil {
			l.refetch()
		}
		return
	}

	conv := l.convs[i]
	conv.LastMessage = &msg
	counts := make(map[string]int, len(conv.UnreadCounts)+1)
	for k, v := range conv.UnreadCounts {
		counts[k] = v
	}
	counts[userID]++
	conv.UnreadCounts = counts
	l.moveToFront(i, conv)
	l.mu.Unlock()
}

// ApplySent handles a message the current user sent: same snapshot update and
// move-to-front, but the sender's own message never counts as unread.
func (l *List) ApplySent(conversationID string, msg models.MessageSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(conversationID)
	if i < 0 {
		return
	}
	conv := l.convs[i]
	conv.LastMessage = &msg
	l.moveToFront(i, conv)
}

// PrependPending inserts the placeholder conversation shown while chatting
// with someone who has no prior thread. Any previous placeholder is dropped
// first; at most one may exist.
func (l *List) PrependPending(currentUserID, recipientID string) models.Conversation {
	conv := models.Conversation{
		ID:           models.PendingConversationID,
		CreatorID:    currentUserID,
		MemberID:     recipientID,
		UnreadCounts: map[string]int{},
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	l.mu.Lock()
	if i := l.index(models.PendingConversationID); i >= 0 {
		l.convs = append(l.convs[:i], l.convs[i+1:]...)
	}
	l.convs = append([]models.Conversation{conv}, l.convs...)
	l.mu.Unlock()
	return conv
}

// Materialize replaces the placeholder with the server-assigned conversation
// once the first send succeeded. The sentinel id is never kept around.
func (l *List) Materialize(real models.Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.index(models.PendingConversationID); i >= 0 {
		l.convs[i] = real
		return
	}
	if l.index(real.ID) < 0 {
		l.convs = append([]models.Conversation{real}, l.convs...)
	}
}

// ClearUnread zeroes the current user's unread count on one conversation,
// used when the user opens it.
func (l *List) ClearUnread(conversationID, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(conversationID)
	if i < 0 || l.convs[i].UnreadCounts == nil {
		return
	}
	counts := make(map[string]int, len(l.convs[i].UnreadCounts))
	for k, v := range l.convs[i].UnreadCounts {
		counts[k] = v
	}
	counts[userID] = 0
	l.convs[i].UnreadCounts = counts
}

// Get returns a snapshot of one conversation.
func (l *List) Get(id string) (models.Conversation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.index(id); i >= 0 {
		return l.convs[i], true
	}
	return models.Conversation{}, false
}

// Conversations returns a copy of the cache, most-recently-active first.
func (l *List) Conversations() []models.Conversation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Conversation(nil), l.convs...)
}

func (l *List) index(id string) int {
	for i := range l.convs {
		if l.convs[i].ID == id {
			return i
		}
	}
	return -1
}

// moveToFront is unconditional, not a stable sort. Callers hold the lock.
func (l *List) moveToFront(i int, conv models.Conversation) {
	if i == 0 {
		l.convs[0] = conv
		return
	}
	l.convs = append(l.convs[:i], l.convs[i+1:]...)
	l.convs = append([]models.Conversation{conv}, l.convs...)
}
