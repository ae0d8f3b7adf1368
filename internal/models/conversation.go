package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingConversationID is the reserved id of a conversation that exists only
// client-side, before the first message send creates the real one.
const PendingConversationID = "new"

// MessageSummary is the denormalized last-message snapshot carried on a
// conversation.
type MessageSummary struct {
	Content  string    `json:"content"`
	SenderID string    `json:"senderId"`
	SentAt   time.Time `json:"sentAt"`
}

type Conversation struct {
	ID           string          `json:"_id" gorm:"primaryKey"`
	CreatorID    string          `json:"creatorId" gorm:"index;not null"`
	MemberID     string          `json:"memberId" gorm:"index;not null"`
	LastMessage  *MessageSummary `json:"lastMessage" gorm:"serializer:json"`
	UnreadCounts map[string]int  `json:"unreadCounts" gorm:"serializer:json"`
	IsActive     bool            `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt" gorm:"index"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Pending reports whether the conversation is the client-side placeholder.
func (c *Conversation) Pending() bool {
	return c.ID == PendingConversationID
}

// Peer returns the other participant of the pair.
func (c *Conversation) Peer(userID string) string {
	if c.CreatorID == userID {
		return c.MemberID
	}
	return c.CreatorID
}

type StartConversationRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
}
