package devserver

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fanspace/fanspace-go/internal/models"
	"github.com/fanspace/fanspace-go/internal/realtime"
)

// getConversations returns the user's conversations, most recently active
// first.
func (s *Server) getConversations(c *fiber.Ctx) error {
	uid := userID(c)

	var convs []models.Conversation
	s.db.Where("creator_id = ? OR member_id = ?", uid, uid).
		Order("updated_at DESC").
		Find(&convs)

	return ok(c, fiber.Map{"conversations": convs})
}

// startConversation creates the conversation for a participant pair, or
// returns the existing one — at most one conversation exists per pair.
func (s *Server) startConversation(c *fiber.Ctx) error {
	uid := userID(c)

	var req models.StartConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return failValidation(c, validationDetails(err))
	}
	if req.RecipientID == uid {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "Cannot start a conversation with yourself")
	}

	var recipient models.User
	if err := s.db.First(&recipient, "id = ?", req.RecipientID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "USER_NOT_FOUND", "Recipient does not exist")
	}

	var conv models.Conversation
	err := s.db.Where(
		"(creator_id = ? AND member_id = ?) OR (creator_id = ? AND member_id = ?)",
		uid, req.RecipientID, req.RecipientID, uid,
	).First(&conv).Error
	if err == nil {
		return ok(c, fiber.Map{"conversation": conv})
	}

	conv = models.Conversation{
		CreatorID:    uid,
		MemberID:     req.RecipientID,
		UnreadCounts: map[string]int{uid: 0, req.RecipientID: 0},
		IsActive:     true,
	}
	if err := s.db.Create(&conv).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to create conversation")
	}
	return created(c, fiber.Map{"conversation": conv})
}

// getMessages pages backward through a conversation's history. The cursor is
// the id of the oldest message of the previous page; pages are newest-first.
func (s *Server) getMessages(c *fiber.Ctx) error {
	uid := userID(c)
	conv, err := s.memberConversation(c.Params("id"), uid)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "CONVERSATION_NOT_FOUND", "Conversation not found")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	query := s.db.Where("conversation_id = ?", conv.ID)
	if cursor := c.Query("cursor"); cursor != "" {
		var pivot models.Message
		if err := s.db.First(&pivot, "id = ? AND conversation_id = ?", cursor, conv.ID).Error; err != nil {
			return fail(c, fiber.StatusBadRequest, "INVALID_CURSOR", "Unknown pagination cursor")
		}
		// Id breaks ties so messages sharing the boundary timestamp are not
		// skipped across pages.
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			pivot.CreatedAt, pivot.CreatedAt, pivot.ID)
	}

	var messages []models.Message
	query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages)

	next := ""
	if len(messages) == limit {
		next = messages[len(messages)-1].ID
	}
	return ok(c, fiber.Map{
		"messages":   messages,
		"pagination": fiber.Map{"cursor": next},
	})
}

// sendMessage persists the message, updates the conversation snapshot and
// fans the event out: full message to the room, summary notification and a
// new_message notification to the recipient's sockets.
func (s *Server) sendMessage(c *fiber.Ctx) error {
	uid := userID(c)
	conv, err := s.memberConversation(c.Params("id"), uid)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "CONVERSATION_NOT_FOUND", "Conversation not found")
	}

	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return failValidation(c, validationDetails(err))
	}
	if req.ContentType == "" {
		req.ContentType = "text"
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       uid,
		Content:        req.Content,
		ContentType:    req.ContentType,
		Attachments:    req.Attachments,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to store message")
	}

	peer := conv.Peer(uid)
	summary := msg.Summary()
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int{}
	}
	conv.UnreadCounts[peer]++
	conv.LastMessage = &summary
	s.db.Save(&conv)

	notif := models.Notification{
		UserID:    peer,
		Type:      models.NotificationNewMessage,
		Title:     "New message",
		Message:   msg.Content,
		RelatedID: conv.ID,
	}
	s.db.Create(&notif)

	s.hub.toRoom(conv.ID, realtime.EventNewMessage, msg, nil)
	s.hub.toUser(peer, realtime.EventNewMessageNotification, realtime.NewMessageNotification{
		ConversationID: conv.ID,
		Message:        summary,
	})
	s.hub.toUser(peer, realtime.EventNotification, notif)

	return created(c, fiber.Map{"message": msg})
}

// markConversationRead marks the peer's messages read, zeroes the reader's
// unread count and emits read receipts to the room.
func (s *Server) markConversationRead(c *fiber.Ctx) error {
	uid := userID(c)
	conv, err := s.memberConversation(c.Params("id"), uid)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "CONVERSATION_NOT_FOUND", "Conversation not found")
	}

	var unread []models.Message
	s.db.Where("conversation_id = ? AND sender_id != ? AND is_read = ?", conv.ID, uid, false).
		Find(&unread)

	now := time.Now()
	if len(unread) > 0 {
		ids := make([]string, len(unread))
		for i, m := range unread {
			ids[i] = m.ID
		}
		s.db.Model(&models.Message{}).Where("id IN ?", ids).
			Updates(map[string]interface{}{"is_read": true, "read_at": now})
	}

	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int{}
	}
	conv.UnreadCounts[uid] = 0
	s.db.Save(&conv)

	for _, m := range unread {
		s.hub.toRoom(conv.ID, realtime.EventMessageRead, realtime.MessageReadEvent{MessageID: m.ID}, nil)
	}
	return ok(c, fiber.Map{"read": len(unread)})
}

// getConversationUnreadCount counts unread messages addressed to the user
// across all their conversations.
func (s *Server) getConversationUnreadCount(c *fiber.Ctx) error {
	uid := userID(c)

	var count int64
	s.db.Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.creator_id = ? OR conversations.member_id = ?)", uid, uid).
		Where("messages.sender_id != ? AND messages.is_read = ?", uid, false).
		Count(&count)

	return ok(c, fiber.Map{"count": count})
}

func (s *Server) memberConversation(id, uid string) (models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("id = ? AND (creator_id = ? OR member_id = ?)", id, uid, uid).
		First(&conv).Error
	return conv, err
}
