package server

import (
	"io"

	"dojo/internal/models"
	"dojo/internal/service"

	"github.com/gofiber/fiber/v2"
)

// readUpload pulls one multipart file field into memory. Uploads are bounded
// by configuration well below anything that needs streaming.
func (s *Server) readUpload(c *fiber.Ctx, field string) (string, []byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("No file uploaded"))
		return "", nil, errResponseWritten
	}

	f, err := fileHeader.Open()
	if err != nil {
		_ = models.RespondWithError(c, models.NewInternalError(err))
		return "", nil, errResponseWritten
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		_ = models.RespondWithError(c, models.NewInternalError(err))
		return "", nil, errResponseWritten
	}
	return fileHeader.Filename, content, nil
}

// UploadPostImage handles POST /api/posts/:id/images (multipart field "file")
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	filename, content, err := s.readUpload(c, "file")
	if err != nil {
		return nil
	}

	media, err := s.mediaService.UploadImage(c.Context(), actor, service.UploadImageInput{
		PostID:   postID,
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(media)
}

// AddPostVideo handles POST /api/posts/:id/videos
func (s *Server) AddPostVideo(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	media, err := s.mediaService.AddVideoEmbed(c.Context(), actor, postID, req.URL)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(media)
}

// GetPostMedia handles GET /api/posts/:id/media
func (s *Server) GetPostMedia(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	media, err := s.mediaService.ListByPost(c.Context(), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(media)
}

// ServeMediaFile handles GET /api/media/:id/file
func (s *Server) ServeMediaFile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	media, data, err := s.mediaService.ReadFile(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	c.Set(fiber.HeaderContentType, media.MimeType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}

// DeleteMedia handles DELETE /api/media/:id
func (s *Server) DeleteMedia(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	if err := s.mediaService.Delete(c.Context(), actor, id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Media deleted"})
}

// UploadMyAvatar handles POST /api/users/me/avatar
func (s *Server) UploadMyAvatar(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	return s.uploadAvatar(c, actor, actor.ID)
}

// UploadUserAvatar handles POST /api/users/:id/avatar
func (s *Server) UploadUserAvatar(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	return s.uploadAvatar(c, actor, id)
}

func (s *Server) uploadAvatar(c *fiber.Ctx, actor *models.User, userID uint) error {
	filename, content, err := s.readUpload(c, "file")
	if err != nil {
		return nil
	}

	user, err := s.mediaService.UploadAvatar(c.Context(), actor, userID, filename, content)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}
