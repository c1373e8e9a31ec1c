package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	inbox, err := s.notifService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inbox)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notifService.MarkRead(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "read": true})
}

// MarkAllNotificationsRead handles POST /api/notifications/read
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	changed, err := s.notifService.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marked": changed})
}
