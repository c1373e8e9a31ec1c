package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFollowing handles GET /api/friends
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.friendService.Following(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetPendingRequests handles GET /api/friends/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	requests, err := s.friendService.PendingRequests(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// SendFriendRequest handles POST /api/friends/requests/:id where id is the target user.
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	request, err := s.friendService.SendRequest(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// AcceptFriendRequest handles POST /api/friends/requests/:id/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	requestID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	request, err := s.friendService.AcceptRequest(c.UserContext(), currentUserID(c), requestID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(request)
}

// RemoveFriendRequest handles DELETE /api/friends/requests/:id
func (s *Server) RemoveFriendRequest(c *fiber.Ctx) error {
	requestID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.friendService.RemoveRequest(c.UserContext(), currentUserID(c), requestID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
