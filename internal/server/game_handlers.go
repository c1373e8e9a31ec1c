package server

import (
	"seniority/internal/game"
	"seniority/internal/models"

	"github.com/gofiber/fiber/v2"
)

// moveResponse is the body of move and forfeit calls. Rejections are sent
// with 409 and carry the session as it stands.
type moveResponse struct {
	game.MoveResult
	Session *models.GameSession `json:"session"`
}

func respondMove(c *fiber.Ctx, session *models.GameSession, result game.MoveResult) error {
	status := fiber.StatusOK
	if !result.Accepted {
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(moveResponse{MoveResult: result, Session: session})
}

// GetGameCatalog handles GET /api/games
func (s *Server) GetGameCatalog(c *fiber.Ctx) error {
	entries, err := s.gameService.Catalog()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// GetGameStats handles GET /api/games/stats
func (s *Server) GetGameStats(c *fiber.Ctx) error {
	stats, err := s.gameService.Stats(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetActiveSessions handles GET /api/games/sessions
func (s *Server) GetActiveSessions(c *fiber.Ctx) error {
	sessions, err := s.gameService.ListActive(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sessions)
}

// ChallengeGame handles POST /api/games/sessions. An existing playing
// session between the pair is returned with 200 instead of a new one.
func (s *Server) ChallengeGame(c *fiber.Ctx) error {
	var req struct {
		OpponentID uint   `json:"opponent_id"`
		GameID     string `json:"game_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	session, created, err := s.gameService.Challenge(c.UserContext(), currentUserID(c), req.OpponentID, req.GameID)
	if err != nil {
		return respondError(c, err)
	}
	if !created {
		return c.JSON(session)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetGameSession handles GET /api/games/sessions/:id
func (s *Server) GetGameSession(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	session, err := s.gameService.Get(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// GetSessionMoves handles GET /api/games/sessions/:id/moves
func (s *Server) GetSessionMoves(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	moves, err := s.gameService.History(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(moves)
}

// MakeMove handles POST /api/games/sessions/:id/moves
func (s *Server) MakeMove(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Cell *int `json:"cell"`
	}
	if err := c.BodyParser(&req); err != nil || req.Cell == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("cell is required"))
	}

	session, result, err := s.gameService.Move(c.UserContext(), id, currentUserID(c), *req.Cell)
	if err != nil {
		return respondError(c, err)
	}
	return respondMove(c, session, result)
}

// ForfeitGame handles POST /api/games/sessions/:id/forfeit
func (s *Server) ForfeitGame(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	session, result, err := s.gameService.Forfeit(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondMove(c, session, result)
}

// DismissGame handles DELETE /api/games/sessions/:id
func (s *Server) DismissGame(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.gameService.Dismiss(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
