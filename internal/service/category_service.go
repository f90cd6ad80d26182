package service

import (
	"context"
	"errors"
	"strings"

	"dojo/internal/models"
	"dojo/internal/repository"
	"dojo/internal/slug"

	"gorm.io/gorm"
)

// CategoryService manages the admin-curated category taxonomy.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// Create adds a category with a slug derived from the name.
func (s *CategoryService) Create(ctx context.Context, name, description string, displayOrder int) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}
	if len(name) > 100 {
		return nil, models.NewValidationError("Category name too long (max 100 characters)")
	}

	catSlug := slug.Generate(name)
	if catSlug == "" {
		return nil, models.NewValidationError("Category name yields an empty slug")
	}
	if _, err := s.categoryRepo.GetBySlug(ctx, catSlug); err == nil {
		return nil, models.NewConflictError("A category with the same slug already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := &models.Category{
		Name:         name,
		Slug:         catSlug,
		Description:  description,
		DisplayOrder: displayOrder,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Get loads one category.
func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, err
	}
	return category, nil
}

// GetBySlug loads one category by its slug.
func (s *CategoryService) GetBySlug(ctx context.Context, catSlug string) (*models.Category, error) {
	category, err := s.categoryRepo.GetBySlug(ctx, catSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", catSlug)
		}
		return nil, err
	}
	return category, nil
}

// List returns all categories in display order.
func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// Update renames or reorders a category. Renaming regenerates the slug.
func (s *CategoryService) Update(ctx context.Context, id uint, name, description string, displayOrder int) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}

	if name != category.Name {
		newSlug := slug.Generate(name)
		if newSlug == "" {
			return nil, models.NewValidationError("Category name yields an empty slug")
		}
		if other, err := s.categoryRepo.GetBySlug(ctx, newSlug); err == nil && other.ID != id {
			return nil, models.NewConflictError("A category with the same slug already exists")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		category.Slug = newSlug
	}

	category.Name = name
	category.Description = description
	category.DisplayOrder = displayOrder

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category; its posts are detached, not deleted.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.categoryRepo.Delete(ctx, id)
}
