package server

import (
	"seniority/internal/models"
	"seniority/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PATCH /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUsers handles GET /api/users
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
