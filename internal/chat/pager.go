package chat

import (
	"context"
	"sync"
	"time"

	"github.com/fanspace/fanspace-go/internal/models"
)

// DefaultPageSize is how many messages one page request asks for.
const DefaultPageSize = 10

// PageFetcher loads one page of a conversation's history. An empty cursor
// means "newest page". It returns the messages newest-first and the opaque
// cursor for the next (older) page, empty when the history is exhausted.
type PageFetcher func(ctx context.Context, conversationID, cursor string, limit int) ([]models.Message, string, error)

type PagerState int

const (
	PagerIdle PagerState = iota
	PagerFetching
	PagerReady
	PagerExhausted
)

func (s PagerState) String() string {
	switch s {
	case PagerIdle:
		return "idle"
	case PagerFetching:
		return "fetching"
	case PagerReady:
		return "ready"
	case PagerExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Pager pages backward through one conversation's message history. Pages are
// stored newest-first internally; Messages() exposes the flattened
// oldest-first projection the display layer wants.
type Pager struct {
	conversationID string
	fetch          PageFetcher
	limit          int

	mu        sync.Mutex
	pages     [][]models.Message
	cursor    string
	fetching  bool
	started   bool
	exhausted bool
}

func NewPager(conversationID string, fetch PageFetcher) *Pager {
	return &Pager{conversationID: conversationID, fetch: fetch, limit: DefaultPageSize}
}

func (p *Pager) ConversationID() string { return p.conversationID }

func (p *Pager) State() PagerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.fetching:
		return PagerFetching
	case p.exhausted:
		return PagerExhausted
	case p.started:
		return PagerReady
	}
	return PagerIdle
}

// LoadInitial fetches the newest page. It is a no-op once the pager has
// started.
func (p *Pager) LoadInitial(ctx context.Context) error {
	p.mu.Lock()
	if p.started || p.fetching {
		p.mu.Unlock()
		return nil
	}
	p.fetching = true
	p.mu.Unlock()

	return p.fetchPage(ctx, "")
}

// FetchOlder loads the next page into the past. It is a no-op while a fetch
// is in flight, before the initial load, or once the history is exhausted —
// rapid scroll events must not stack page requests.
func (p *Pager) FetchOlder(ctx context.Context) error {
	p.mu.Lock()
	if p.fetching || !p.started || p.exhausted {
		p.mu.Unlock()
		return nil
	}
	cursor := p.cursor
	p.fetching = true
	p.mu.Unlock()

	return p.fetchPage(ctx, cursor)
}

// fetchPage runs the network call with the in-flight flag held. Callers set
// p.fetching before invoking it.
func (p *Pager) fetchPage(ctx context.Context, cursor string) error {
	msgs, next, err := p.fetch(ctx, p.conversationID, cursor, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetching = false
	if err != nil {
		return err
	}

	p.started = true
	p.pages = append(p.pages, msgs)
	p.cursor = next
	if next == "" {
		p.exhausted = true
	}
	return nil
}

// Messages returns the flattened history oldest-first. Pure projection, the
// pages themselves are never reordered.
func (p *Pager) Messages() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total int
	for _, page := range p.pages {
		total += len(page)
	}
	out := make([]models.Message, 0, total)
	for i := len(p.pages) - 1; i >= 0; i-- {
		page := p.pages[i]
		for j := len(page) - 1; j >= 0; j-- {
			out = append(out, page[j])
		}
	}
	return out
}

// InsertLive places a socket-pushed message at the head of the first page,
// which holds the newest slice. Duplicate ids already in the first page are
// skipped. Returns whether the message was inserted.
func (p *Pager) InsertLive(msg models.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pages) == 0 {
		p.pages = append(p.pages, nil)
		p.started = true
	}
	for i := range p.pages[0] {
		if p.pages[0][i].ID == msg.ID {
			return false
		}
	}
	p.pages[0] = append([]models.Message{msg}, p.pages[0]...)
	return true
}

// AddPending inserts an optimistic, temp-id message at the head of the first
// page on submit.
func (p *Pager) AddPending(msg models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pages) == 0 {
		p.pages = append(p.pages, nil)
		p.started = true
	}
	p.pages[0] = append([]models.Message{msg}, p.pages[0]...)
}

// ResolvePending replaces the temp-id entry with the server-confirmed message
// wherever it sits, never appending a duplicate. Returns whether a temp entry
// was found.
func (p *Pager) ResolvePending(tempID string, real models.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.pages {
		for j := range p.pages[i] {
			if p.pages[i][j].ID == tempID {
				p.pages[i][j] = real
				return true
			}
		}
	}
	return false
}

// FailPending flags the temp entry as errored so the caller can surface it.
func (p *Pager) FailPending(tempID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.pages {
		for j := range p.pages[i] {
			if p.pages[i][j].ID == tempID {
				p.pages[i][j].Status = models.MessageError
				return true
			}
		}
	}
	return false
}

// MarkRead applies a read receipt, searched across all loaded pages since a
// receipt can arrive for any visible message.
func (p *Pager) MarkRead(messageID string, readAt time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.pages {
		for j := range p.pages[i] {
			if p.pages[i][j].ID == messageID {
				p.pages[i][j].IsRead = true
				t := readAt
				p.pages[i][j].ReadAt = &t
				return true
			}
		}
	}
	return false
}

// Contains reports whether any loaded page holds the id.
func (p *Pager) Contains(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.pages {
		for j := range p.pages[i] {
			if p.pages[i][j].ID == messageID {
				return true
			}
		}
	}
	return false
}
