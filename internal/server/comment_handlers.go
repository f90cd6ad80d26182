package server

import (
	"dojo/internal/models"
	"dojo/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, s.config.CommentsPerPage)
	comments, total, err := s.commentService.List(c.Context(), postID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(pagedResponse(comments, total, page))
}

// CreateComment handles POST /api/posts/:id/comments. The route carries
// optional auth: a valid token attributes the comment, no token makes it a
// guest comment.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content   string `json:"content"`
		GuestName string `json:"guest_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Add(c.Context(), service.AddCommentInput{
		PostID:    postID,
		Actor:     s.optionalActor(c),
		GuestName: req.GuestName,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetAllComments handles GET /api/comments. It is the moderation view: an
// optional q parameter narrows by content, guest name or author name.
func (s *Server) GetAllComments(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	page := parsePagination(c, s.config.CommentsPerPage)
	comments, total, err := s.commentService.Search(c.Context(), actor, c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(pagedResponse(comments, total, page))
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	if err := s.commentService.Delete(c.Context(), actor, id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
