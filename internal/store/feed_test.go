package store

import (
	"testing"
	"time"

	"github.com/fanspace/fanspace-go/internal/models"
)

func notif(id string, typ models.NotificationType) models.Notification {
	return models.Notification{ID: id, Type: typ, Title: "t", CreatedAt: time.Now()}
}

func TestFeedAddPrependsAndCounts(t *testing.T) {
	var unread Counter
	f := NewFeed(&unread)

	f.Add(notif("a", models.NotificationNewLike))
	f.Add(notif("b", models.NotificationNewComment))
	f.Add(notif("c", models.NotificationNewMember))

	if f.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", f.Len())
	}
	if got := unread.Value(); got != 3 {
		t.Fatalf("expected unread 3, got %d", got)
	}

	entries := f.Entries()
	if entries[0].ID != "c" || entries[2].ID != "a" {
		t.Fatalf("expected most-recent-first order, got %s..%s", entries[0].ID, entries[2].ID)
	}
}

func TestFeedRepeatedIDBumpsWithoutGrowth(t *testing.T) {
	var unread Counter
	f := NewFeed(&unread)

	f.Add(notif("a", models.NotificationNewLike))
	f.Add(notif("b", models.NotificationNewComment))

	updated := notif("a", models.NotificationNewLike)
	updated.Title = "updated"
	f.Add(updated)

	if f.Len() != 2 {
		t.Fatalf("repeated id must not grow the feed, got %d", f.Len())
	}
	if got := unread.Value(); got != 2 {
		t.Fatalf("repeated id must not bump the counter, got %d", got)
	}

	entries := f.Entries()
	if entries[0].ID != "a" || entries[0].Title != "updated" {
		t.Fatalf("expected updated entry moved to front, got %+v", entries[0])
	}
}

func TestFeedIgnoresNewMessageType(t *testing.T) {
	var unread Counter
	f := NewFeed(&unread)

	f.Add(notif("m", models.NotificationNewMessage))

	if f.Len() != 0 {
		t.Fatalf("new_message notification must never enter the feed, got len %d", f.Len())
	}
	if got := unread.Value(); got != 0 {
		t.Fatalf("new_message notification must not touch the counter, got %d", got)
	}
}

func TestFeedMarkRead(t *testing.T) {
	var unread Counter
	f := NewFeed(&unread)

	f.Add(notif("a", models.NotificationNewLike))
	f.Add(notif("b", models.NotificationPostLiked))

	f.MarkRead("a")
	if got := unread.Value(); got != 1 {
		t.Fatalf("expected unread 1, got %d", got)
	}

	// Marking the same entry again must not decrement twice.
	f.MarkRead("a")
	if got := unread.Value(); got != 1 {
		t.Fatalf("expected unread still 1, got %d", got)
	}

	f.MarkRead("missing")
	if got := unread.Value(); got != 1 {
		t.Fatalf("unknown id must not touch the counter, got %d", got)
	}
}

func TestFeedMarkAllRead(t *testing.T) {
	var unread Counter
	f := NewFeed(&unread)

	f.Add(notif("a", models.NotificationNewLike))
	f.Add(notif("b", models.NotificationNewComment))
	f.Add(notif("c", models.NotificationMembershipExpired))
	f.MarkRead("b")

	f.MarkAllRead()

	if got := unread.Value(); got != 0 {
		t.Fatalf("expected unread 0 after mark-all, got %d", got)
	}
	for _, n := range f.Entries() {
		if !n.IsRead {
			t.Fatalf("entry %s still unread after mark-all", n.ID)
		}
	}
}

func TestFeedClear(t *testing.T) {
	var unread Counter
	f := NewFeed(&unread)

	f.Add(notif("a", models.NotificationNewLike))
	f.Clear()

	if f.Len() != 0 || unread.Value() != 0 {
		t.Fatalf("expected empty feed and zero counter, got len=%d unread=%d", f.Len(), unread.Value())
	}
}
