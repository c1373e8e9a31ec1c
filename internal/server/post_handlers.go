package server

import (
	"seniority/internal/feed"
	"seniority/internal/models"
	"seniority/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed?tab=home|latest|profile&user_id=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	tab, err := feed.ParseTab(c.Query("tab"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}

	page := parsePagination(c, 20)
	posts, err := s.feedService.Feed(c.UserContext(), service.FeedQuery{
		ViewerID: optionalUserID(c),
		Tab:      tab,
		AuthorID: uint(c.QueryInt("user_id", 0)),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:   currentUserID(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 20)
	posts, err := s.feedService.Feed(c.UserContext(), service.FeedQuery{
		ViewerID: optionalUserID(c),
		Tab:      feed.TabProfile,
		AuthorID: authorID,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), postID, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:id/like. A second call removes the like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 50)
	comments, err := s.postService.ListComments(c.UserContext(), postID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.postService.AddComment(c.UserContext(), currentUserID(c), postID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
