package server

import (
	"dojo/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.Context())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory handles GET /api/categories/:slug
func (s *Server) GetCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(category)
}

// GetPostsByCategory handles GET /api/categories/:slug/posts
func (s *Server) GetPostsByCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page := parsePagination(c, s.config.PostsPerPage)
	posts, err := s.postService.ListPublishedByCategory(c.Context(), category.ID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"category": category,
		"items":    posts,
		"page":     page.Page,
		"limit":    page.Limit,
	})
}

// CreateCategory handles POST /api/categories
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.Create(c.Context(), req.Name, req.Description, req.DisplayOrder)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.Update(c.Context(), id, req.Name, req.Description, req.DisplayOrder)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.Delete(c.Context(), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.List(c.Context())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(tags)
}

// GetTag handles GET /api/tags/:slug
func (s *Server) GetTag(c *fiber.Ctx) error {
	tag, err := s.tagService.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(tag)
}

// GetPostsByTag handles GET /api/tags/:slug/posts
func (s *Server) GetPostsByTag(c *fiber.Ctx) error {
	tag, err := s.tagService.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page := parsePagination(c, s.config.PostsPerPage)
	posts, err := s.postService.ListPublishedByTag(c.Context(), tag.ID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"tag":   tag,
		"items": posts,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// CreateTag handles POST /api/tags
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	tag, err := s.tagService.Create(c.Context(), req.Name, req.Color)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// DeleteTag handles DELETE /api/tags/:id
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tagService.Delete(c.Context(), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tag deleted"})
}
