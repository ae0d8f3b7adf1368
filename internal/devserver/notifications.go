package devserver

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fanspace/fanspace-go/internal/models"
	"github.com/fanspace/fanspace-go/internal/realtime"
)

// getNotifications returns the user's feed, newest first. new_message rows
// are tracked solely through the message unread counter and stay out of the
// feed.
func (s *Server) getNotifications(c *fiber.Ctx) error {
	uid := userID(c)

	var notifications []models.Notification
	s.db.Where("user_id = ? AND type != ?", uid, models.NotificationNewMessage).
		Order("created_at DESC").
		Limit(50).
		Find(&notifications)

	return ok(c, fiber.Map{"notifications": notifications})
}

func (s *Server) getNotificationUnreadCount(c *fiber.Ctx) error {
	uid := userID(c)

	var count int64
	s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ? AND type != ?", uid, false, models.NotificationNewMessage).
		Count(&count)

	return ok(c, fiber.Map{"count": count})
}

func (s *Server) markNotificationRead(c *fiber.Ctx) error {
	uid := userID(c)

	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Params("id"), uid).
		Update("is_read", true)
	if result.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found")
	}
	return ok(c, fiber.Map{"updated": 1})
}

func (s *Server) markAllNotificationsRead(c *fiber.Ctx) error {
	uid := userID(c)

	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", uid, false).
		Update("is_read", true)

	return ok(c, fiber.Map{"updated": result.RowsAffected})
}

// Notify stores a notification and pushes it to the user's sockets. Other
// parts of the dev server (and seeds) use it to simulate platform activity.
func (s *Server) Notify(n models.Notification) error {
	if err := s.db.Create(&n).Error; err != nil {
		return err
	}
	s.hub.toUser(n.UserID, realtime.EventNotification, n)
	return nil
}
