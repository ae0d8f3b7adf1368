package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationNewMember         NotificationType = "new_member"
	NotificationNewMessage        NotificationType = "new_message"
	NotificationNewComment        NotificationType = "new_comment"
	NotificationNewLike           NotificationType = "new_like"
	NotificationMembershipExpired NotificationType = "membership_expired"
	NotificationPostLiked         NotificationType = "post_liked"
	NotificationOther             NotificationType = "other"
)

type Notification struct {
	ID        string           `json:"_id" gorm:"primaryKey"`
	UserID    string           `json:"userId" gorm:"index;not null"`
	Type      NotificationType `json:"type" gorm:"size:30;index"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	RelatedID string           `json:"relatedId,omitempty"` // post id for post-scoped notifications
	IsRead    bool             `json:"isRead" gorm:"default:false;index"`
	CreatedAt time.Time        `json:"createdAt" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
