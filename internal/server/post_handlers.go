package server

import (
	"context"
	"encoding/json"

	"dojo/internal/markdown"
	"dojo/internal/models"
	"dojo/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postDetail renders one post with its content converted to sanitized HTML.
// Lists carry raw markdown; only the detail view pays for rendering.
func postDetail(post *models.Post) fiber.Map {
	return fiber.Map{
		"post":         post,
		"content_html": markdown.Render(post.Content),
	}
}

// GetPublishedPosts handles GET /api/posts
func (s *Server) GetPublishedPosts(c *fiber.Ctx) error {
	page := parsePagination(c, s.config.PostsPerPage)

	posts, total, err := s.postService.ListPublished(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(pagedResponse(posts, total, page))
}

// SearchPosts handles GET /api/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return models.RespondWithError(c, models.NewValidationError("Search query is required"))
	}

	page := parsePagination(c, s.config.PostsPerPage)
	posts, err := s.postService.Search(c.Context(), s.optionalActor(c), q, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"items": posts, "page": page.Page, "limit": page.Limit})
}

// GetPost handles GET /api/posts/:id. Unpublished posts are visible to
// their author and to admins only.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewer := s.optionalActor(c)
	post, err := s.postService.GetVisible(c.Context(), viewer, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(postDetail(post))
}

// GetMyPosts handles GET /api/posts/mine
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	page := parsePagination(c, s.config.PostsPerPage)
	posts, err := s.postService.ListByAuthor(c.Context(), actor.ID, true, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"items": posts, "page": page.Page, "limit": page.Limit})
}

// GetPendingPosts handles GET /api/posts/pending, the moderation queue in
// submission order.
func (s *Server) GetPendingPosts(c *fiber.Ctx) error {
	page := parsePagination(c, s.config.PostsPerPage)

	posts, total, err := s.postService.ListPending(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(pagedResponse(posts, total, page))
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title      string `json:"title"`
		Content    string `json:"content"`
		CategoryID *uint  `json:"category_id"`
		TagIDs     []uint `json:"tag_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Create(c.Context(), actor, service.CreatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		TagIDs:     req.TagIDs,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	var in models.UpdatePostInput
	if in.Title, err = optionalField[string](raw, "title"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.Content, err = optionalField[string](raw, "content"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.CategoryID, err = optionalField[uint](raw, "category_id"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.TagIDs, err = optionalField[[]uint](raw, "tag_ids"); err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.postService.Update(c.Context(), actor, id, in)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(post)
}

// SubmitPost handles POST /api/posts/:id/submit
func (s *Server) SubmitPost(c *fiber.Ctx) error {
	return s.workflowAction(c, s.postService.Submit)
}

// ApprovePost handles POST /api/posts/:id/approve
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	return s.workflowAction(c, s.postService.Approve)
}

// RejectPost handles POST /api/posts/:id/reject
func (s *Server) RejectPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Reject(c.Context(), actor, id, req.Reason)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(post)
}

// workflowAction runs a parameterless lifecycle transition handler.
func (s *Server) workflowAction(c *fiber.Ctx,
	action func(ctx context.Context, actor *models.User, id uint) (*models.Post, error)) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	post, err := action(c.Context(), actor, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.Context(), actor, id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetPostTags handles GET /api/posts/:id/tags
func (s *Server) GetPostTags(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tags, err := s.tagService.ListForPost(c.Context(), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(tags)
}

// AttachTag handles POST /api/posts/:id/tags/:tagId
func (s *Server) AttachTag(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tagID, err := s.parseID(c, "tagId")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	if err := s.requirePostEdit(c, actor, postID); err != nil {
		return nil
	}

	if err := s.tagService.Attach(c.Context(), postID, tagID); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tag attached"})
}

// DetachTag handles DELETE /api/posts/:id/tags/:tagId
func (s *Server) DetachTag(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tagID, err := s.parseID(c, "tagId")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	if err := s.requirePostEdit(c, actor, postID); err != nil {
		return nil
	}

	if err := s.tagService.Detach(c.Context(), postID, tagID); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tag detached"})
}

// requirePostEdit loads the post and checks the actor may modify it,
// writing the error response on failure.
func (s *Server) requirePostEdit(c *fiber.Ctx, actor *models.User, postID uint) error {
	post, err := s.postService.Get(c.Context(), postID)
	if err != nil {
		_ = models.RespondWithError(c, err)
		return errResponseWritten
	}
	if !post.CanEdit(actor) {
		_ = models.RespondWithError(c,
			models.NewForbiddenError("Not allowed to modify this post"))
		return errResponseWritten
	}
	return nil
}
