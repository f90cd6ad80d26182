package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"dojo/internal/cache"
	"dojo/internal/models"
	"dojo/internal/repository"
	"dojo/internal/slug"

	"gorm.io/gorm"
)

var colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TagService manages the tag vocabulary and post/tag links.
type TagService struct {
	tagRepo  repository.TagRepository
	postRepo repository.PostRepository
	cache    *cache.Cache
}

// NewTagService creates a new tag service
func NewTagService(tagRepo repository.TagRepository, postRepo repository.PostRepository, c *cache.Cache) *TagService {
	return &TagService{tagRepo: tagRepo, postRepo: postRepo, cache: c}
}

// Create adds a tag. The slug is derived from the name; names that collide
// case-insensitively are conflicts.
func (s *TagService) Create(ctx context.Context, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Tag name is required")
	}
	if len(name) > 50 {
		return nil, models.NewValidationError("Tag name too long (max 50 characters)")
	}
	if color != "" && !colorRegex.MatchString(color) {
		return nil, models.NewValidationError("Color must be a #rrggbb value")
	}

	if _, err := s.tagRepo.GetByName(ctx, name); err == nil {
		return nil, models.NewConflictError("Tag already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tagSlug := slug.Generate(name)
	if tagSlug == "" {
		return nil, models.NewValidationError("Tag name yields an empty slug")
	}
	if _, err := s.tagRepo.GetBySlug(ctx, tagSlug); err == nil {
		return nil, models.NewConflictError("A tag with the same slug already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag := &models.Tag{Name: name, Slug: tagSlug}
	if color != "" {
		tag.Color = color
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Get loads one tag by ID.
func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tag", id)
		}
		return nil, err
	}
	return tag, nil
}

// GetBySlug loads one tag by its slug.
func (s *TagService) GetBySlug(ctx context.Context, tagSlug string) (*models.Tag, error) {
	tag, err := s.tagRepo.GetBySlug(ctx, tagSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tag", tagSlug)
		}
		return nil, err
	}
	return tag, nil
}

// List returns the whole tag vocabulary.
func (s *TagService) List(ctx context.Context) ([]*models.Tag, error) {
	return s.tagRepo.List(ctx)
}

// Delete removes a tag and its post links.
func (s *TagService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.tagRepo.Delete(ctx, id)
}

// Attach links a tag to a post. Re-attaching is a no-op, not an error.
func (s *TagService) Attach(ctx context.Context, postID, tagID uint) error {
	if _, err := s.Get(ctx, tagID); err != nil {
		return err
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", postID)
		}
		return err
	}
	if err := s.tagRepo.Attach(ctx, postID, tagID); err != nil {
		return err
	}
	s.cache.InvalidatePost(ctx, postID)
	return nil
}

// Detach removes a tag from a post.
// ListForPost returns the tags linked to one post.
func (s *TagService) ListForPost(ctx context.Context, postID uint) ([]*models.Tag, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, err
	}
	return s.tagRepo.ListForPost(ctx, postID)
}

func (s *TagService) Detach(ctx context.Context, postID, tagID uint) error {
	if err := s.tagRepo.Detach(ctx, postID, tagID); err != nil {
		return err
	}
	s.cache.InvalidatePost(ctx, postID)
	return nil
}
