package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dojo/internal/cache"
	"dojo/internal/models"
	"dojo/internal/observability"
	"dojo/internal/repository"
	"dojo/internal/storage"

	"gorm.io/gorm"
)

const (
	maxTitleLen   = 200
	maxContentLen = 50000
)

// PostService runs the moderated post workflow.
type PostService struct {
	postRepo      repository.PostRepository
	categoryRepo  repository.CategoryRepository
	tagRepo       repository.TagRepository
	mediaRepo     repository.MediaRepository
	notifications *NotificationService
	store         storage.Store
	cache         *cache.Cache
}

// CreatePostInput carries the fields of a new post.
type CreatePostInput struct {
	Title      string
	Content    string
	CategoryID *uint
	TagIDs     []uint
}

// NewPostService creates a new post service
func NewPostService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	tagRepo repository.TagRepository,
	mediaRepo repository.MediaRepository,
	notifications *NotificationService,
	store storage.Store,
	c *cache.Cache,
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		categoryRepo:  categoryRepo,
		tagRepo:       tagRepo,
		mediaRepo:     mediaRepo,
		notifications: notifications,
		store:         store,
		cache:         c,
	}
}

// Create makes a new post owned by the actor. Posts by administrators go
// straight to PUBLISHED with the publication timestamp stamped; everyone
// else starts in DRAFT.
func (s *PostService) Create(ctx context.Context, actor *models.User, in CreatePostInput) (*models.Post, error) {
	caps := actor.CapabilitiesFor(actor.ID)
	if !caps.CanAuthor {
		return nil, models.NewForbiddenError("Account may not create posts")
	}

	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}

	if in.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("Category", *in.CategoryID)
			}
			return nil, err
		}
	}

	post := &models.Post{
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		Status:     models.StatusDraft,
		CategoryID: in.CategoryID,
		AuthorID:   actor.ID,
	}
	if caps.CanModerate {
		now := time.Now()
		post.Status = models.StatusPublished
		post.PublishedAt = &now
		post.ReviewedByID = &actor.ID
		post.ReviewedAt = &now
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	if len(in.TagIDs) > 0 {
		if err := s.replaceTags(ctx, post.ID, in.TagIDs); err != nil {
			return nil, err
		}
	}

	if post.IsPublished() {
		s.cache.InvalidatePublishedFeed(ctx)
		if err := s.notifications.NotifyAllUsers(ctx, actor.ID, models.NotifyAdminPost,
			post.Title, "News from the club has been published",
			fmt.Sprintf("/posts/%d", post.ID)); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, post.ID)
}

// Get loads one post with its associations.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return post, nil
}

// GetVisible loads one post, hiding unpublished posts from everyone but
// their author and moderators. Published posts are served through the
// cache; only published posts are ever cached, so a hit is safe for any
// viewer.
func (s *PostService) GetVisible(ctx context.Context, viewer *models.User, id uint) (*models.Post, error) {
	var cached models.Post
	if s.cache.GetJSON(ctx, cache.PostKey(id), &cached) {
		return &cached, nil
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.IsPublished() {
		s.cache.SetJSON(ctx, cache.PostKey(id), post, cache.PostTTL)
		return post, nil
	}

	if viewer != nil {
		caps := viewer.CapabilitiesFor(post.AuthorID)
		if caps.CanModerate || caps.CanSelf {
			return post, nil
		}
	}
	// Hidden posts are indistinguishable from missing ones.
	return nil, models.NewNotFoundError("Post", id)
}

// publishedPage is the cached form of one feed page.
type publishedPage struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
}

// ListPublished returns a page of the public feed, newest first. Pages on
// page-aligned offsets are served through the cache; every post mutation
// that can change the feed drops the cached pages.
func (s *PostService) ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	cacheable := limit > 0 && offset%limit == 0
	var key string
	if cacheable {
		key = cache.PublishedPageKey(offset/limit+1, limit)
		var page publishedPage
		if s.cache.GetJSON(ctx, key, &page) {
			return page.Posts, page.Total, nil
		}
	}

	posts, err := s.postRepo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.postRepo.CountPublished(ctx)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		s.cache.SetJSON(ctx, key, publishedPage{Posts: posts, Total: total}, cache.ListTTL)
	}
	return posts, total, nil
}

// ListPending returns the moderation queue, oldest first.
func (s *PostService) ListPending(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	posts, err := s.postRepo.ListByStatus(ctx, models.StatusPendingApproval, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.postRepo.CountByStatus(ctx, models.StatusPendingApproval)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByAuthor returns an author's posts. With includeRejected unset the
// listing hides rejected posts, the default view of someone else's authoring
// history.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uint, includeRejected bool, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, authorID, includeRejected, limit, offset)
}

// ListPublishedByCategory returns the public feed filtered to one category.
func (s *PostService) ListPublishedByCategory(ctx context.Context, categoryID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListPublishedByCategory(ctx, categoryID, limit, offset)
}

// ListPublishedByTag returns the public feed filtered to one tag.
func (s *PostService) ListPublishedByTag(ctx context.Context, tagID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListPublishedByTag(ctx, tagID, limit, offset)
}

// Search finds posts matching the query. Moderators search the full archive
// including drafts and the moderation queue; everyone else sees published
// posts only.
func (s *PostService) Search(ctx context.Context, viewer *models.User, query string, limit, offset int) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	publishedOnly := viewer == nil || !viewer.CapabilitiesFor(0).CanModerate
	return s.postRepo.Search(ctx, query, publishedOnly, limit, offset)
}

// Submit moves the actor's draft into the moderation queue.
func (s *PostService) Submit(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	caps := actor.CapabilitiesFor(post.AuthorID)
	if !caps.CanSelf && !caps.CanModerate {
		return nil, models.NewForbiddenError("Only the author may submit this post")
	}

	next, err := models.NextStatus(post.Status, models.ActionSubmit)
	if err != nil {
		return nil, err
	}

	post.Status = next
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Approve publishes a pending post, stamping reviewer and publication time.
func (s *PostService) Approve(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	post, err := s.moderate(ctx, actor, id, models.ActionApprove)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post.PublishedAt = &now
	post.RejectionReason = ""
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	observability.ModerationDecisions.WithLabelValues(string(models.ActionApprove)).Inc()
	s.cache.InvalidatePost(ctx, post.ID)

	// Publication is announced to every active account except the author.
	if err := s.notifications.NotifyAllUsers(ctx, post.AuthorID, models.NotifyAdminPost,
		post.Title, "A new post has been published",
		fmt.Sprintf("/posts/%d", post.ID)); err != nil {
		return nil, err
	}
	return post, nil
}

// Reject declines a pending post. The reason is optional; when given the
// author sees it on the post.
func (s *PostService) Reject(ctx context.Context, actor *models.User, id uint, reason string) (*models.Post, error) {
	post, err := s.moderate(ctx, actor, id, models.ActionReject)
	if err != nil {
		return nil, err
	}

	post.RejectionReason = strings.TrimSpace(reason)
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	observability.ModerationDecisions.WithLabelValues(string(models.ActionReject)).Inc()

	// The author sees the reason on the post itself; rejection is not
	// broadcast.
	return post, nil
}

// moderate runs the shared checks of approve/reject and stamps the reviewer.
func (s *PostService) moderate(ctx context.Context, actor *models.User, id uint, action models.WorkflowAction) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CapabilitiesFor(post.AuthorID).CanModerate {
		return nil, models.NewForbiddenError("Only administrators may moderate posts")
	}

	next, err := models.NextStatus(post.Status, action)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post.Status = next
	post.ReviewedByID = &actor.ID
	post.ReviewedAt = &now
	return post, nil
}

// Update applies a partial edit. Moderators may edit anything; authors only
// their own posts while still in DRAFT or PENDING_APPROVAL.
func (s *PostService) Update(ctx context.Context, actor *models.User, id uint, in models.UpdatePostInput) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !post.CanEdit(actor) {
		return nil, models.NewForbiddenError("Not allowed to edit this post")
	}

	if in.Title.Set {
		if in.Title.Null || strings.TrimSpace(in.Title.Value) == "" {
			return nil, models.NewValidationError("Title cannot be cleared")
		}
		if err := validatePostFields(in.Title.Value, post.Content); err != nil {
			return nil, err
		}
		post.Title = strings.TrimSpace(in.Title.Value)
	}
	if in.Content.Set {
		if in.Content.Null || in.Content.Value == "" {
			return nil, models.NewValidationError("Content cannot be cleared")
		}
		if err := validatePostFields(post.Title, in.Content.Value); err != nil {
			return nil, err
		}
		post.Content = in.Content.Value
	}
	if in.CategoryID.Set {
		if in.CategoryID.Null {
			post.CategoryID = nil
		} else {
			if _, err := s.categoryRepo.GetByID(ctx, in.CategoryID.Value); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, models.NewNotFoundError("Category", in.CategoryID.Value)
				}
				return nil, err
			}
			v := in.CategoryID.Value
			post.CategoryID = &v
		}
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	if in.TagIDs.Set {
		tagIDs := in.TagIDs.Value
		if in.TagIDs.Null {
			tagIDs = nil
		}
		if err := s.replaceTags(ctx, post.ID, tagIDs); err != nil {
			return nil, err
		}
	}

	s.cache.InvalidatePost(ctx, post.ID)
	return s.Get(ctx, post.ID)
}

// Delete removes a post with its attachments, including stored files.
// Moderators may delete anything; authors only their own drafts.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id uint) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !post.CanDelete(actor) {
		return models.NewForbiddenError("Not allowed to delete this post")
	}

	media, err := s.mediaRepo.ListByPost(ctx, id)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}

	// Files go after the database commit; a leaked file is recoverable, a
	// dangling row is not.
	for _, m := range media {
		if m.IsUploaded() {
			if err := s.store.Delete(m.FilePath); err != nil {
				return models.NewStorageError(err)
			}
		}
	}

	s.cache.InvalidatePost(ctx, id)
	return nil
}

func (s *PostService) replaceTags(ctx context.Context, postID uint, tagIDs []uint) error {
	for _, tagID := range tagIDs {
		if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Tag", tagID)
			}
			return err
		}
	}
	return s.tagRepo.ReplaceForPost(ctx, postID, tagIDs)
}

func validatePostFields(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}
