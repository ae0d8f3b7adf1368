package realtime

import (
	"encoding/json"

	"github.com/fanspace/fanspace-go/internal/models"
)

// Event names carried over the socket.
const (
	EventNotification           = "notification"
	EventNewMessageNotification = "new_message_notification"
	EventNewMessage             = "new_message"
	EventUserTyping             = "user_typing"
	EventUserStoppedTyping      = "user_stopped_typing"
	EventMessageRead            = "message_read"
	EventJoinRoom               = "join_room"
	EventLeaveRoom              = "leave_room"
)

// Envelope is the wire frame for every socket message, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewMessageNotification announces a message in one of the user's
// conversations, whether or not its room is joined.
type NewMessageNotification struct {
	ConversationID string                `json:"conversationId"`
	Message        models.MessageSummary `json:"message"`
}

type TypingEvent struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type MessageReadEvent struct {
	MessageID string `json:"messageId"`
}

type RoomRequest struct {
	ConversationID string `json:"conversationId"`
}
