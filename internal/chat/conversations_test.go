package chat

import (
	"testing"
	"time"

	"github.com/fanspace/fanspace-go/internal/models"
)

func testConversations() []models.Conversation {
	return []models.Conversation{
		{ID: "c1", CreatorID: "u2", MemberID: "u1", UnreadCounts: map[string]int{"u1": 0}},
		{ID: "c2", CreatorID: "u3", MemberID: "u1", UnreadCounts: map[string]int{"u1": 2}},
	}
}

func TestApplyIncomingMovesToFrontAndCounts(t *testing.T) {
	l := NewList(nil)
	convs := testConversations()
	// Put c1 second so the move-to-front is observable.
	l.Load([]models.Conversation{convs[1], convs[0]})

	sent := time.Now()
	l.ApplyIncoming("c1", models.MessageSummary{Content: "hi", SenderID: "u2", SentAt: sent}, "u1")

	got := l.Conversations()
	if got[0].ID != "c1" {
		t.Fatalf("expected c1 at front, got %s", got[0].ID)
	}
	if got[0].UnreadCounts["u1"] != 1 {
		t.Fatalf("expected unread 1 for u1, got %d", got[0].UnreadCounts["u1"])
	}
	if got[0].LastMessage == nil || got[0].LastMessage.Content != "hi" {
		t.Fatalf("expected lastMessage snapshot, got %+v", got[0].LastMessage)
	}
	if got[1].ID != "c2" || got[1].UnreadCounts["u1"] != 2 {
		t.Fatalf("c2 must be untouched, got %+v", got[1])
	}
}

func TestApplyIncomingAlreadyAtFront(t *testing.T) {
	l := NewList(nil)
	l.Load(testConversations())

	l.ApplyIncoming("c1", models.MessageSummary{Content: "a", SenderID: "u2", SentAt: time.Now()}, "u1")
	l.ApplyIncoming("c1", models.MessageSummary{Content: "b", SenderID: "u2", SentAt: time.Now()}, "u1")

	got := l.Conversations()
	if len(got) != 2 || got[0].ID != "c1" {
		t.Fatalf("expected c1 front with no duplication, got %d convs, front %s", len(got), got[0].ID)
	}
	if got[0].UnreadCounts["u1"] != 2 {
		t.Fatalf("expected unread 2, got %d", got[0].UnreadCounts["u1"])
	}
	if got[0].LastMessage.Content != "b" {
		t.Fatalf("expected latest snapshot, got %q", got[0].LastMessage.Content)
	}
}

func TestApplyIncomingUnknownConversationRefetchesOnce(t *testing.T) {
	refetches := 0
	l := NewList(func() { refetches++ })
	l.Load(testConversations())

	l.ApplyIncoming("missing", models.MessageSummary{Content: "?", SenderID: "u9", SentAt: time.Now()}, "u1")

	if refetches != 1 {
		t.Fatalf("expected exactly one refetch, got %d", refetches)
	}
	if len(l.Conversations()) != 2 {
		t.Fatalf("cache must not synthesize a conversation, got %d", len(l.Conversations()))
	}
}

func TestApplySentDoesNotIncrementUnread(t *testing.T) {
	l := NewList(nil)
	convs := testConversations()
	l.Load([]models.Conversation{convs[1], convs[0]})

	l.ApplySent("c1", models.MessageSummary{Content: "mine", SenderID: "u1", SentAt: time.Now()})

	got := l.Conversations()
	if got[0].ID != "c1" {
		t.Fatalf("expected c1 moved to front, got %s", got[0].ID)
	}
	if got[0].UnreadCounts["u1"] != 0 {
		t.Fatalf("own message must not count as unread, got %d", got[0].UnreadCounts["u1"])
	}
	if got[0].LastMessage == nil || got[0].LastMessage.Content != "mine" {
		t.Fatalf("expected snapshot update, got %+v", got[0].LastMessage)
	}
}

func TestPendingLifecycle(t *testing.T) {
	l := NewList(nil)
	l.Load(testConversations())

	pending := l.PrependPending("u1", "u9")
	if !pending.Pending() {
		t.Fatalf("expected sentinel id, got %s", pending.ID)
	}
	if got := l.Conversations(); got[0].ID != models.PendingConversationID {
		t.Fatalf("expected placeholder at front, got %s", got[0].ID)
	}

	// A second placeholder replaces the first, never stacks.
	l.PrependPending("u1", "u8")
	count := 0
	for _, c := range l.Conversations() {
		if c.Pending() {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected a single placeholder, got %d", count)
	}

	real := models.Conversation{ID: "c9", CreatorID: "u1", MemberID: "u8", UnreadCounts: map[string]int{}}
	l.Materialize(real)

	got := l.Conversations()
	if got[0].ID != "c9" {
		t.Fatalf("expected materialized conversation at front, got %s", got[0].ID)
	}
	for _, c := range got {
		if c.Pending() {
			t.Fatalf("sentinel survived materialization")
		}
	}
}

func TestClearUnread(t *testing.T) {
	l := NewList(nil)
	l.Load(testConversations())

	l.ClearUnread("c2", "u1")
	conv, ok := l.Get("c2")
	if !ok || conv.UnreadCounts["u1"] != 0 {
		t.Fatalf("expected cleared unread, got %+v", conv.UnreadCounts)
	}
}
