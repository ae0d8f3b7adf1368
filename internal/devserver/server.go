// Package devserver is a self-contained Fiber implementation of the platform
// API the SDK talks to: auth, conversations, notifications and the socket
// event stream. It backs the integration tests and the local demo; it is not
// the production backend.
package devserver

import (
	"encoding/json"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"github.com/fanspace/fanspace-go/internal/realtime"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string
}

type Server struct {
	app      *fiber.App
	db       *gorm.DB
	hub      *hub
	validate *validator.Validate
	secret   string
}

func New(cfg Config) (*Server, error) {
	db, err := connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		db:       db,
		hub:      newHub(),
		validate: validator.New(),
		secret:   cfg.JWTSecret,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.register)
	auth.Post("/login", s.login)
	auth.Post("/refresh", s.refresh)

	protected := api.Group("/", s.protected())

	notifications := protected.Group("/notifications")
	notifications.Get("/", s.getNotifications)
	notifications.Get("/unread-count", s.getNotificationUnreadCount)
	notifications.Put("/:id/read", s.markNotificationRead)
	notifications.Post("/mark-all-read", s.markAllNotificationsRead)

	conversations := protected.Group("/conversations")
	conversations.Get("/", s.getConversations)
	conversations.Post("/", s.startConversation)
	conversations.Get("/unread-count", s.getConversationUnreadCount)
	conversations.Get("/:id/messages", s.getMessages)
	conversations.Post("/:id/messages", s.sendMessage)
	conversations.Post("/:id/read", s.markConversationRead)

	s.app.Use("/ws", s.socketUpgrade())
	s.app.Get("/ws", websocket.New(s.handleSocket))
}

// handleSocket runs one client's socket: register, serve room joins and
// typing relays, unregister on close.
func (s *Server) handleSocket(conn *websocket.Conn) {
	uid, ok := conn.Locals("userId").(string)
	if !ok {
		conn.Close()
		return
	}

	client := &wsClient{conn: conn, userID: uid}
	s.hub.register(client)
	defer s.hub.unregister(client)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("hub: bad frame from %s: %v", uid, err)
			continue
		}

		switch env.Event {
		case realtime.EventJoinRoom:
			var req realtime.RoomRequest
			if json.Unmarshal(env.Data, &req) == nil && s.memberOf(req.ConversationID, uid) {
				s.hub.join(req.ConversationID, client)
			}
		case realtime.EventLeaveRoom:
			var req realtime.RoomRequest
			if json.Unmarshal(env.Data, &req) == nil {
				s.hub.leave(req.ConversationID, client)
			}
		case realtime.EventUserTyping, realtime.EventUserStoppedTyping:
			var ev realtime.TypingEvent
			if json.Unmarshal(env.Data, &ev) == nil {
				ev.UserID = uid
				s.hub.toRoom(ev.ConversationID, env.Event, ev, client)
			}
		default:
			log.Printf("hub: unknown event %q from %s", env.Event, uid)
		}
	}
}

func (s *Server) memberOf(conversationID, uid string) bool {
	_, err := s.memberConversation(conversationID, uid)
	return err == nil
}

// App exposes the Fiber app for in-process tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
