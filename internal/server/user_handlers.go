package server

import (
	"encoding/json"

	"dojo/internal/models"
	"dojo/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	return c.JSON(actor)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	return s.applyUserUpdate(c, actor, actor.ID)
}

// GetUsers handles GET /api/users with optional ?q= search
func (s *Server) GetUsers(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c, s.config.PostsPerPage)

	if q := c.Query("q"); q != "" {
		users, err := s.userService.Search(ctx, q, page.Limit, page.Offset)
		if err != nil {
			return models.RespondWithError(c, err)
		}
		return c.JSON(fiber.Map{"items": users, "page": page.Page, "limit": page.Limit})
	}

	users, total, err := s.userService.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(pagedResponse(users, total, page))
}

// CreateUser handles POST /api/users
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Username  string          `json:"username"`
		Password  string          `json:"password"`
		FullName  string          `json:"full_name"`
		Email     string          `json:"email"`
		StudentID string          `json:"student_id"`
		Belt      string          `json:"belt"`
		Role      models.UserRole `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Create(c.Context(), service.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		FullName:  req.FullName,
		Email:     req.Email,
		StudentID: req.StudentID,
		Belt:      req.Belt,
		Role:      req.Role,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.Get(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	// Members see only their own authoring list; admins anyone's.
	caps := actor.CapabilitiesFor(id)
	if !caps.CanModerate && !caps.CanSelf {
		return models.RespondWithError(c,
			models.NewForbiddenError("Not allowed to view this user's posts"))
	}

	// Rejected posts stay out of the listing unless asked for; the author's
	// own view (GET /posts/mine) always includes them.
	includeRejected := c.QueryBool("include_rejected", false)

	page := parsePagination(c, s.config.PostsPerPage)
	posts, err := s.postService.ListByAuthor(c.Context(), id, includeRejected, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"items": posts, "page": page.Page, "limit": page.Limit})
}

// UpdateUser handles PUT /api/users/:id
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	return s.applyUserUpdate(c, actor, id)
}

// applyUserUpdate parses a partial-update body and applies it through the
// user service, which owns the permission checks.
func (s *Server) applyUserUpdate(c *fiber.Ctx, actor *models.User, id uint) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	var in models.UpdateUserInput
	var err error
	if in.FullName, err = optionalField[string](raw, "full_name"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.Email, err = optionalField[string](raw, "email"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.StudentID, err = optionalField[string](raw, "student_id"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.Belt, err = optionalField[string](raw, "belt"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.PhoneNumber, err = optionalField[string](raw, "phone_number"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.JoinDate, err = optionalField[string](raw, "join_date"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.Status, err = optionalField[models.UserStatus](raw, "status"); err != nil {
		return models.RespondWithError(c, err)
	}
	if in.Role, err = optionalField[models.UserRole](raw, "role"); err != nil {
		return models.RespondWithError(c, err)
	}

	user, err := s.userService.Update(c.Context(), actor, id, in)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// ToggleUserStatus handles POST /api/users/:id/toggle-status
func (s *Server) ToggleUserStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	user, err := s.userService.ToggleStatus(c.Context(), actor, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// PromoteUserBelt handles POST /api/users/:id/promote-belt
func (s *Server) PromoteUserBelt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Belt string `json:"belt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.PromoteBelt(c.Context(), id, req.Belt)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// BulkPromoteBelt handles POST /api/users/promote-belt
func (s *Server) BulkPromoteBelt(c *fiber.Ctx) error {
	var req struct {
		UserIDs []uint `json:"user_ids"`
		Belt    string `json:"belt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}
	if len(req.UserIDs) == 0 {
		return models.RespondWithError(c, models.NewValidationError("user_ids is required"))
	}

	promoted, skipped, err := s.userService.BulkPromoteBelt(c.Context(), req.UserIDs, req.Belt)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"promoted": promoted,
		"skipped":  skipped,
	})
}

// DeleteUser handles DELETE /api/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	if err := s.userService.Delete(c.Context(), actor, id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}
