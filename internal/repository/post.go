package repository

import (
	"context"

	"dojo/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByStatus(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint, includeRejected bool, limit, offset int) ([]*models.Post, error)
	ListPublishedByCategory(ctx context.Context, categoryID uint, limit, offset int) ([]*models.Post, error)
	ListPublishedByTag(ctx context.Context, tagID uint, limit, offset int) ([]*models.Post, error)
	Search(ctx context.Context, query string, publishedOnly bool, limit, offset int) ([]*models.Post, error)
	CountPublished(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.PostStatus) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withDetails selects posts with their comment counts and preloads the
// associations every read path needs.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).
		Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count").
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Preload("Media")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Preload("ReviewedBy").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("posts.status = ?", models.StatusPublished).
		Order("published_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByStatus(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("posts.status = ?", status).
		Order("posts.created_at ASC, posts.id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, includeRejected bool, limit, offset int) ([]*models.Post, error) {
	q := r.withDetails(r.db.WithContext(ctx)).
		Where("posts.author_id = ?", authorID)
	if !includeRejected {
		q = q.Where("posts.status <> ?", models.StatusRejected)
	}

	var posts []*models.Post
	err := q.
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListPublishedByCategory(ctx context.Context, categoryID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("posts.status = ? AND posts.category_id = ?", models.StatusPublished, categoryID).
		Order("published_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListPublishedByTag(ctx context.Context, tagID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("posts.status = ? AND post_tags.tag_id = ?", models.StatusPublished, tagID).
		Order("published_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// Search matches posts by title or content, case-insensitively. With
// publishedOnly unset the search also covers drafts, the moderation queue
// and rejected posts, ordered by creation time since unpublished posts have
// no published_at.
func (r *postRepository) Search(ctx context.Context, query string, publishedOnly bool, limit, offset int) ([]*models.Post, error) {
	pattern := "%" + query + "%"
	q := r.withDetails(r.db.WithContext(ctx)).
		Where("LOWER(posts.title) LIKE LOWER(?) OR LOWER(posts.content) LIKE LOWER(?)", pattern, pattern)

	order := "posts.created_at DESC, posts.id DESC"
	if publishedOnly {
		q = q.Where("posts.status = ?", models.StatusPublished)
		order = "published_at DESC, posts.id DESC"
	}

	var posts []*models.Post
	err := q.
		Order(order).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) CountPublished(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, "status = ?", models.StatusPublished)
}

func (r *postRepository) CountByStatus(ctx context.Context, status models.PostStatus) (int64, error) {
	return r.countWhere(ctx, "status = ?", status)
}

func (r *postRepository) countWhere(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where(query, args...).Count(&count).Error
	return count, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit("Author", "Category", "Tags", "Media", "Comments", "ReviewedBy").Save(post).Error
}

// Delete removes the post with its media, comments and tag links in one
// transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}
