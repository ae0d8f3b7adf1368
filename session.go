// Package fanspace is the client SDK for the Fanspace creator-membership
// platform: the session-scoped synchronization layer between the REST +
// socket backend and a UI. One Session exists per authenticated user; view
// code reads its stores and dispatches intents, only the handlers in here
// mutate state.
package fanspace

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fanspace/fanspace-go/internal/api"
	"github.com/fanspace/fanspace-go/internal/chat"
	"github.com/fanspace/fanspace-go/internal/models"
	"github.com/fanspace/fanspace-go/internal/realtime"
	"github.com/fanspace/fanspace-go/internal/store"
)

// maxOpenPagers bounds how many conversations keep paged history in memory.
// An evicted conversation simply refetches when reopened.
const maxOpenPagers = 32

type Config struct {
	// APIBaseURL is the REST root, e.g. http://localhost:8080/api.
	APIBaseURL string
	// SocketURL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	SocketURL string
}

// Session owns the socket connection and the three session caches. It is
// safe for concurrent use by the UI and the socket read loop.
type Session struct {
	cfg Config
	api *api.Client

	Counters      *store.Counters
	Feed          *store.Feed
	Conversations *chat.List
	Typing        *chat.TypingRegistry

	mu              sync.Mutex
	user            models.User
	conn            *realtime.Conn
	pagers          *lru.Cache[string, *chat.Pager]
	viewingMessages bool
	pendingPeer     string // recipient behind the "new" placeholder
	materializedID  string // real id the placeholder resolved to
	materializing   *materializeCall
}

// materializeCall is the shared result concurrent placeholder sends wait on,
// so the conversation-create call is issued exactly once.
type materializeCall struct {
	done chan struct{}
	id   string
	err  error
}

func NewSession(cfg Config) *Session {
	counters := &store.Counters{}
	s := &Session{
		cfg:      cfg,
		api:      api.NewClient(cfg.APIBaseURL),
		Counters: counters,
		Feed:     store.NewFeed(&counters.Notifications),
		Typing:   chat.NewTypingRegistry(),
	}
	s.Conversations = chat.NewList(s.refetchConversations)
	s.pagers, _ = lru.New[string, *chat.Pager](maxOpenPagers)
	s.api.OnSessionLoss(s.endLiveConnection)
	return s
}

// endLiveConnection tears the socket down when the session is lost (the
// server rejected a token refresh); a dead token must not keep the reconnect
// loop alive. The close runs off this goroutine because the rejected refresh
// can originate on the connection's own read loop.
func (s *Session) endLiveConnection() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		log.Printf("session: token refresh rejected, closing live connection")
		go conn.Close()
	}
}

// API exposes the REST client for calls the session does not wrap.
func (s *Session) API() *api.Client { return s.api }

func (s *Session) User() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) UserID() string { return s.User().ID }

// Login authenticates and opens the live connection.
func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	s.start(resp.User)
	return resp.User, nil
}

// Register creates an account and opens the live connection.
func (s *Session) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return models.User{}, err
	}
	s.start(resp.User)
	return resp.User, nil
}

func (s *Session) start(user models.User) {
	// Close the old connection outside the lock: its read goroutine dispatches
	// into handlers that take s.mu, and Close waits for that goroutine.
	s.mu.Lock()
	old := s.conn
	s.conn = nil
	s.user = user
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	conn := realtime.Open(s.cfg.SocketURL, s.api.AccessToken, realtime.Handlers{
		OnConnect:                s.syncCounters,
		OnNotification:           s.handleNotification,
		OnNewMessageNotification: s.handleNewMessageNotification,
		OnNewMessage:             s.handleNewMessage,
		OnTyping:                 s.handleTyping,
		OnMessageRead:            s.handleMessageRead,
	})
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// Logout tears down the connection and empties every session cache.
func (s *Session) Logout() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.user = models.User{}
	s.pendingPeer = ""
	s.materializedID = ""
	s.viewingMessages = false
	s.pagers.Purge()
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	s.Feed.Clear()
	s.Counters.Messages.Reset()
	s.Conversations.Load(nil)
	s.Typing.Clear()
}

// syncCounters overwrites both unread counters with the server's values,
// reconciling anything missed while disconnected. Runs on every (re)connect.
func (s *Session) syncCounters() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n, err := s.api.NotificationUnreadCount(ctx); err != nil {
		log.Printf("session: notification count sync: %v", err)
	} else {
		s.Counters.Notifications.Set(n)
	}
	if n, err := s.api.ConversationUnreadCount(ctx); err != nil {
		log.Printf("session: message count sync: %v", err)
	} else {
		s.Counters.Messages.Set(n)
	}
}

func (s *Session) handleNotification(n models.Notification) {
	// The routing rule for new_message types lives in Feed.Add.
	s.Feed.Add(n)
}

func (s *Session) handleNewMessageNotification(ev realtime.NewMessageNotification) {
	s.Conversations.ApplyIncoming(ev.ConversationID, ev.Message, s.UserID())

	s.mu.Lock()
	viewing := s.viewingMessages
	s.mu.Unlock()
	if !viewing {
		s.Counters.Messages.Increment()
	}
}

// handleNewMessage applies a room-scoped message to the open conversation's
// pager. Our own messages echo back from the broadcast; the sender check
// drops them before the send ack lands, and the pager's id guard catches any
// copy that slips through after it.
func (s *Session) handleNewMessage(m models.Message) {
	if m.SenderID == s.UserID() {
		return
	}
	if pager, ok := s.pagers.Get(m.ConversationID); ok {
		pager.InsertLive(m)
	}
}

func (s *Session) handleTyping(ev realtime.TypingEvent, started bool) {
	if started {
		s.Typing.Start(ev.ConversationID, ev.UserID)
		return
	}
	s.Typing.Stop(ev.ConversationID, ev.UserID)
}

// handleMessageRead carries only a message id, so every cached pager is
// searched.
func (s *Session) handleMessageRead(ev realtime.MessageReadEvent) {
	now := time.Now()
	for _, key := range s.pagers.Keys() {
		if pager, ok := s.pagers.Get(key); ok && pager.MarkRead(ev.MessageID, now) {
			return
		}
	}
}

// refetchConversations is the reconciler's out-of-band hook for pushes that
// reference a conversation the cache does not hold.
func (s *Session) refetchConversations() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.RefreshConversations(ctx); err != nil {
		log.Printf("session: conversation refetch: %v", err)
	}
}

// RefreshConversations reloads the conversation cache from the server.
func (s *Session) RefreshConversations(ctx context.Context) error {
	convs, err := s.api.Conversations(ctx)
	if err != nil {
		return err
	}
	s.Conversations.Load(convs)
	return nil
}

// RefreshNotifications reloads the feed. new_message notifications are
// tracked solely by the message counter and are filtered out of the feed.
func (s *Session) RefreshNotifications(ctx context.Context) error {
	list, err := s.api.Notifications(ctx)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, n := range list {
		if n.Type != models.NotificationNewMessage {
			filtered = append(filtered, n)
		}
	}
	s.Feed.Replace(filtered)
	return nil
}

// MarkNotificationRead confirms server-side first, then mutates the feed.
func (s *Session) MarkNotificationRead(ctx context.Context, id string) error {
	if err := s.api.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	s.Feed.MarkRead(id)
	return nil
}

// MarkAllNotificationsRead mutates local state only after the server call
// succeeds; a refresh before confirmation simply refetches truth.
func (s *Session) MarkAllNotificationsRead(ctx context.Context) error {
	if err := s.api.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}
	s.Feed.MarkAllRead()
	return nil
}

// EnterMessages marks the messaging surface as visible and resets the
// message counter; pushes arriving while it is visible do not count.
func (s *Session) EnterMessages() {
	s.mu.Lock()
	s.viewingMessages = true
	s.mu.Unlock()
	s.Counters.Messages.Reset()
}

func (s *Session) LeaveMessages() {
	s.mu.Lock()
	s.viewingMessages = false
	s.mu.Unlock()
}

// StartConversationWith prepends the "new" placeholder for a recipient with
// no existing thread. The real conversation is created on the first send.
func (s *Session) StartConversationWith(recipientID string) models.Conversation {
	s.mu.Lock()
	s.pendingPeer = recipientID
	s.materializedID = ""
	userID := s.user.ID
	s.mu.Unlock()
	return s.Conversations.PrependPending(userID, recipientID)
}

// OpenConversation joins the room, ensures a pager with the first page
// loaded, and clears the conversation's unread count. The placeholder id has
// no history to open.
func (s *Session) OpenConversation(ctx context.Context, conversationID string) (*chat.Pager, error) {
	if conversationID == models.PendingConversationID {
		return s.pager(conversationID), nil
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		if err := conn.JoinRoom(conversationID); err != nil {
			log.Printf("session: join room %s: %v", conversationID, err)
		}
	}

	pager := s.pager(conversationID)
	if err := pager.LoadInitial(ctx); err != nil {
		return nil, err
	}
	s.Conversations.ClearUnread(conversationID, s.UserID())
	return pager, nil
}

// CloseConversation leaves the room. The pager stays cached until evicted.
func (s *Session) CloseConversation(conversationID string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		if err := conn.LeaveRoom(conversationID); err != nil {
			log.Printf("session: leave room %s: %v", conversationID, err)
		}
	}
}

// SendMessage sends with an optimistic entry. A send targeting the "new"
// placeholder creates the real conversation exactly once; every later send
// for that placeholder targets the returned id, never the sentinel.
func (s *Session) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	target := conversationID
	if conversationID == models.PendingConversationID {
		real, err := s.materialize(ctx)
		if err != nil {
			return models.Message{}, err
		}
		target = real
	}

	temp := models.Message{
		ID:             "temp-" + uuid.NewString(),
		ConversationID: target,
		SenderID:       s.UserID(),
		Content:        content,
		ContentType:    "text",
		Status:         models.MessageSending,
		CreatedAt:      time.Now(),
	}
	pager := s.pager(target)
	pager.AddPending(temp)
	s.Conversations.ApplySent(target, temp.Summary())

	sent, err := s.api.SendMessage(ctx, target, models.SendMessageRequest{Content: content})
	if err != nil {
		pager.FailPending(temp.ID)
		temp.Status = models.MessageError
		return temp, err
	}

	sent.Status = models.MessageSent
	pager.ResolvePending(temp.ID, sent)
	s.Conversations.ApplySent(target, sent.Summary())
	return sent, nil
}

// materialize resolves the placeholder to a real conversation, issuing at
// most one create call per placeholder. Concurrent sends share one in-flight
// create and wait on its result.
func (s *Session) materialize(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.materializedID != "" {
		id := s.materializedID
		s.mu.Unlock()
		return id, nil
	}
	if call := s.materializing; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.id, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	peer := s.pendingPeer
	call := &materializeCall{done: make(chan struct{})}
	s.materializing = call
	s.mu.Unlock()

	if peer == "" {
		call.err = &api.Error{Code: "NO_RECIPIENT", Message: "no recipient behind the pending conversation"}
		s.finishMaterialize(call)
		return "", call.err
	}

	conv, err := s.api.StartConversation(ctx, peer)
	if err != nil {
		call.err = err
		s.finishMaterialize(call)
		return "", err
	}

	s.mu.Lock()
	s.materializedID = conv.ID
	s.pendingPeer = ""
	conn := s.conn
	s.mu.Unlock()

	s.Conversations.Materialize(conv)
	if conn != nil {
		if err := conn.JoinRoom(conv.ID); err != nil {
			log.Printf("session: join room %s: %v", conv.ID, err)
		}
	}

	call.id = conv.ID
	s.finishMaterialize(call)
	return conv.ID, nil
}

func (s *Session) finishMaterialize(call *materializeCall) {
	s.mu.Lock()
	s.materializing = nil
	s.mu.Unlock()
	close(call.done)
}

// MarkConversationRead confirms server-side, then clears the local unread
// count.
func (s *Session) MarkConversationRead(ctx context.Context, conversationID string) error {
	if err := s.api.MarkConversationRead(ctx, conversationID); err != nil {
		return err
	}
	s.Conversations.ClearUnread(conversationID, s.UserID())
	return nil
}

// pager returns the cached pager for a conversation, creating it on first
// use. The LRU bounds memory; an evicted conversation refetches on reopen.
func (s *Session) pager(conversationID string) *chat.Pager {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pager, ok := s.pagers.Get(conversationID); ok {
		return pager
	}
	pager := chat.NewPager(conversationID, s.api.Messages)
	s.pagers.Add(conversationID, pager)
	return pager
}
