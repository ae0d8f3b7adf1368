package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus is the client-side transport status of a message. It never
// round-trips to the server.
type MessageStatus string

const (
	MessageSending MessageStatus = "sending"
	MessageSent    MessageStatus = "sent"
	MessageError   MessageStatus = "error"
)

type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type Message struct {
	ID             string        `json:"_id" gorm:"primaryKey"`
	ConversationID string        `json:"conversationId" gorm:"index;not null"`
	SenderID       string        `json:"senderId" gorm:"index;not null"`
	Content        string        `json:"content"`
	ContentType    string        `json:"contentType" gorm:"size:20;default:text"`
	Attachments    []Attachment  `json:"attachments,omitempty" gorm:"serializer:json"`
	Status         MessageStatus `json:"status,omitempty" gorm:"-"`
	IsRead         bool          `json:"isRead" gorm:"default:false"`
	ReadAt         *time.Time    `json:"readAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt" gorm:"index"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Summary returns the denormalized snapshot stored on the conversation.
func (m *Message) Summary() MessageSummary {
	return MessageSummary{Content: m.Content, SenderID: m.SenderID, SentAt: m.CreatedAt}
}

type SendMessageRequest struct {
	Content     string       `json:"content" validate:"required"`
	ContentType string       `json:"contentType,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
