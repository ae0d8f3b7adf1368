package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fanspace/fanspace-go/internal/models"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Handlers receives the inbound event stream. Nil callbacks are skipped.
// Callbacks run on the connection's read goroutine and must not block.
type Handlers struct {
	// OnConnect fires after every successful (re)connect, before any event is
	// dispatched. The session uses it to resync unread counters.
	OnConnect                func()
	OnNotification           func(models.Notification)
	OnNewMessageNotification func(NewMessageNotification)
	OnNewMessage             func(models.Message)
	OnTyping                 func(TypingEvent, bool)
	OnMessageRead            func(MessageReadEvent)
}

// Conn maintains the single live socket connection of an authenticated
// session, reconnecting with capped exponential backoff until closed.
type Conn struct {
	url      string
	token    func() string
	handlers Handlers

	mu     sync.Mutex
	ws     *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// Open dials the socket endpoint and starts the reconnect loop. token is
// re-evaluated on every dial so a refreshed access token is picked up.
func Open(socketURL string, token func() string, handlers Handlers) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		url:      socketURL,
		token:    token,
		handlers: handlers,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)

	backoff := initialBackoff
	for {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.dialURL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Connection errors are logged, never surfaced as blocking UI.
			log.Printf("realtime: dial %s failed: %v (retrying in %s)", c.url, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()
		backoff = initialBackoff

		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect()
		}

		c.readLoop(ws)

		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		ws.Close()

		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Conn) dialURL() string {
	u := c.url
	if token := c.token(); token != "" {
		sep := "?"
		if parsed, err := url.Parse(u); err == nil && parsed.RawQuery != "" {
			sep = "&"
		}
		u += sep + "token=" + url.QueryEscape(token)
	}
	return u
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			log.Printf("realtime: read: %v", err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("realtime: bad frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Conn) dispatch(env Envelope) {
	switch env.Event {
	case EventNotification:
		var n models.Notification
		if decode(env.Data, &n) && c.handlers.OnNotification != nil {
			c.handlers.OnNotification(n)
		}
	case EventNewMessageNotification:
		var ev NewMessageNotification
		if decode(env.Data, &ev) && c.handlers.OnNewMessageNotification != nil {
			c.handlers.OnNewMessageNotification(ev)
		}
	case EventNewMessage:
		var m models.Message
		if decode(env.Data, &m) && c.handlers.OnNewMessage != nil {
			c.handlers.OnNewMessage(m)
		}
	case EventUserTyping:
		var ev TypingEvent
		if decode(env.Data, &ev) && c.handlers.OnTyping != nil {
			c.handlers.OnTyping(ev, true)
		}
	case EventUserStoppedTyping:
		var ev TypingEvent
		if decode(env.Data, &ev) && c.handlers.OnTyping != nil {
			c.handlers.OnTyping(ev, false)
		}
	case EventMessageRead:
		var ev MessageReadEvent
		if decode(env.Data, &ev) && c.handlers.OnMessageRead != nil {
			c.handlers.OnMessageRead(ev)
		}
	default:
		log.Printf("realtime: unknown event %q", env.Event)
	}
}

func decode(raw json.RawMessage, out interface{}) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("realtime: bad payload: %v", err)
		return false
	}
	return true
}

// JoinRoom subscribes to a conversation's room-scoped events.
func (c *Conn) JoinRoom(conversationID string) error {
	return c.send(EventJoinRoom, RoomRequest{ConversationID: conversationID})
}

func (c *Conn) LeaveRoom(conversationID string) error {
	return c.send(EventLeaveRoom, RoomRequest{ConversationID: conversationID})
}

func (c *Conn) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteJSON(Envelope{Event: event, Data: payload})
}

// Close tears the connection down and stops the reconnect loop.
func (c *Conn) Close() {
	c.cancel()
	c.mu.Lock()
	if c.ws != nil {
		c.ws.Close()
	}
	c.mu.Unlock()
	<-c.done
}
