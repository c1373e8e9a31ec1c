package server

import (
	"seniority/internal/models"
	"seniority/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetGroups handles GET /api/groups
func (s *Server) GetGroups(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	groups, err := s.groupService.ListGroups(c.UserContext(), page.Limit, page.Offset, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}

// GetGroup handles GET /api/groups/:id
func (s *Server) GetGroup(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	group, err := s.groupService.GetGroup(c.UserContext(), id, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(group)
}

// GetGroupMembers handles GET /api/groups/:id/members
func (s *Server) GetGroupMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 50)
	members, err := s.groupService.Members(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(members)
}

// GetMyGroups handles GET /api/users/me/groups
func (s *Server) GetMyGroups(c *fiber.Ctx) error {
	groups, err := s.groupService.MyGroups(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}

// CreateGroup handles POST /api/groups
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req service.CreateGroupInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.CreateGroup(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// JoinGroup handles POST /api/groups/:id/join
func (s *Server) JoinGroup(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	group, err := s.groupService.Join(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(group)
}

// LeaveGroup handles DELETE /api/groups/:id/members/me
func (s *Server) LeaveGroup(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.groupService.Leave(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// InviteToGroup handles POST /api/groups/:id/invites/:userId
func (s *Server) InviteToGroup(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	inviteeID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.groupService.Invite(c.UserContext(), currentUserID(c), id, inviteeID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"group_id": id, "user_id": inviteeID})
}
