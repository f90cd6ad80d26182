package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dojo/internal/cache"
	"dojo/internal/models"
	"dojo/internal/repository"

	"gorm.io/gorm"
)

const maxCommentLen = 2000

// CommentService handles discussion under published posts.
type CommentService struct {
	commentRepo   repository.CommentRepository
	postRepo      repository.PostRepository
	notifications *NotificationService
	cache         *cache.Cache
}

// AddCommentInput carries a new comment. Actor is nil for guests.
type AddCommentInput struct {
	PostID    uint
	Actor     *models.User
	GuestName string
	Content   string
}

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	notifications *NotificationService,
	c *cache.Cache,
) *CommentService {
	return &CommentService{
		commentRepo:   commentRepo,
		postRepo:      postRepo,
		notifications: notifications,
		cache:         c,
	}
}

// Add attaches a comment to a published post. Registered users are
// attributed by account; guests by the supplied name, defaulting to the
// guest display name. The post author is notified unless they commented
// themselves.
func (s *CommentService) Add(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", in.PostID)
		}
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewInvalidStateError("Comments are only allowed on published posts")
	}

	comment := &models.Comment{
		PostID:   post.ID,
		Content:  content,
		Approved: true,
	}

	var actorID uint
	var displayName string
	if in.Actor != nil {
		if !in.Actor.IsActive() {
			return nil, models.NewForbiddenError("Account is deactivated")
		}
		actorID = in.Actor.ID
		comment.UserID = &in.Actor.ID
		displayName = in.Actor.FullName
	} else {
		name := strings.TrimSpace(in.GuestName)
		if name == "" {
			name = models.GuestDisplayName
		}
		comment.GuestName = name
		displayName = name
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	// Cached post payloads carry the comment count.
	s.cache.InvalidatePost(ctx, post.ID)

	if err := s.notifications.NotifyUser(ctx, actorID, post.AuthorID, models.NotifyPostComment,
		"New comment", fmt.Sprintf("%s commented on %q", displayName, post.Title),
		fmt.Sprintf("/posts/%d#comment-%d", post.ID, comment.ID)); err != nil {
		return nil, err
	}

	return comment, nil
}

// List returns a page of a post's comments, oldest first.
func (s *CommentService) List(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, int64, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, models.NewNotFoundError("Post", postID)
		}
		return nil, 0, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.commentRepo.CountByPost(ctx, postID)
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// Search is the moderation view over all comments: content, guest name and
// registered author name substring match, newest first. An empty query lists
// everything.
func (s *CommentService) Search(ctx context.Context, actor *models.User, query string, limit, offset int) ([]*models.Comment, int64, error) {
	if !actor.CapabilitiesFor(0).CanModerate {
		return nil, 0, models.NewForbiddenError("Only administrators may browse all comments")
	}
	return s.commentRepo.Search(ctx, strings.TrimSpace(query), limit, offset)
}

// Delete removes a comment. Admins may remove any comment; registered
// authors their own. Guest comments can only be removed by admins.
func (s *CommentService) Delete(ctx context.Context, actor *models.User, id uint) error {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", id)
		}
		return err
	}

	if !comment.CanDelete(actor) {
		return models.NewForbiddenError("Not allowed to delete this comment")
	}

	if err := s.commentRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePost(ctx, comment.PostID)
	return nil
}
