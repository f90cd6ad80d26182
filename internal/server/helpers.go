// Package server contains the HTTP handlers for the application's API
// endpoints.
package server

import (
	"encoding/json"
	"errors"

	"dojo/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed page/limit query parameters as limit/offset.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts page and limit query parameters with the given
// default page size.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// parseID extracts a route parameter by name as a positive uint. On failure
// it writes a 400 JSON response and returns errResponseWritten. Callers
// should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// actor loads the authenticated account. It is only valid behind
// AuthRequired, where the user ID local is guaranteed to be set. A vanished
// account yields 401, not 404: the token outlived its user.
func (s *Server) actor(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		_ = models.RespondWithError(c, models.NewUnauthenticatedError("Authentication required"))
		return nil, errResponseWritten
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = models.RespondWithError(c, models.NewUnauthenticatedError("Account no longer exists"))
			return nil, errResponseWritten
		}
		_ = models.RespondWithError(c, err)
		return nil, errResponseWritten
	}
	return user, nil
}

// optionalActor resolves the account behind OptionalAuth routes. Guests and
// tokens for vanished accounts both come back nil.
func (s *Server) optionalActor(c *fiber.Ctx) *models.User {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return nil
	}
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

// optionalField reads one key of a partial-update body. An absent key means
// "leave alone", an explicit null means "clear", anything else is assigned.
func optionalField[T any](raw map[string]json.RawMessage, key string) (models.Optional[T], error) {
	value, ok := raw[key]
	if !ok {
		return models.Optional[T]{}, nil
	}
	if string(value) == "null" {
		return models.Clear[T](), nil
	}
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return models.Optional[T]{}, models.NewValidationError("Invalid value for field " + key)
	}
	return models.Assign(v), nil
}

// pagedResponse is the common list envelope.
func pagedResponse(items interface{}, total int64, page Pagination) fiber.Map {
	return fiber.Map{
		"items": items,
		"total": total,
		"page":  page.Page,
		"limit": page.Limit,
	}
}
