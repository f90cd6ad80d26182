package service

import (
	"context"
	"testing"

	"dojo/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn         func(context.Context, *models.User) error
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	getByStudentIDFn func(context.Context, string) (*models.User, error)
	listFn           func(context.Context, int, int) ([]*models.User, error)
	listActiveFn     func(context.Context) ([]*models.User, error)
	searchFn         func(context.Context, string, int, int) ([]*models.User, error)
	countFn          func(context.Context) (int64, error)
	countAdminsFn    func(context.Context) (int64, error)
	updateFn         func(context.Context, *models.User) error
	deleteFn         func(context.Context, uint) error
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	return s.getByStudentIDFn(ctx, studentID)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) ListActive(ctx context.Context) ([]*models.User, error) {
	return s.listActiveFn(ctx)
}
func (s *userRepoStub) Search(ctx context.Context, query string, limit, offset int) ([]*models.User, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *userRepoStub) CountAdmins(ctx context.Context) (int64, error) {
	return s.countAdminsFn(ctx)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:         func(_ context.Context, _ *models.User) error { return nil },
		getByIDFn:        func(_ context.Context, _ uint) (*models.User, error) { return nil, gorm.ErrRecordNotFound },
		getByUsernameFn:  func(_ context.Context, _ string) (*models.User, error) { return nil, gorm.ErrRecordNotFound },
		getByStudentIDFn: func(_ context.Context, _ string) (*models.User, error) { return nil, gorm.ErrRecordNotFound },
		listFn:           func(_ context.Context, _, _ int) ([]*models.User, error) { return nil, nil },
		listActiveFn:     func(_ context.Context) ([]*models.User, error) { return nil, nil },
		searchFn:         func(_ context.Context, _ string, _, _ int) ([]*models.User, error) { return nil, nil },
		countFn:          func(_ context.Context) (int64, error) { return 0, nil },
		countAdminsFn:    func(_ context.Context) (int64, error) { return 2, nil },
		updateFn:         func(_ context.Context, _ *models.User) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn                  func(context.Context, *models.Post) error
	getByIDFn                 func(context.Context, uint) (*models.Post, error)
	listPublishedFn           func(context.Context, int, int) ([]*models.Post, error)
	listByStatusFn            func(context.Context, models.PostStatus, int, int) ([]*models.Post, error)
	listByAuthorFn            func(context.Context, uint, bool, int, int) ([]*models.Post, error)
	listPublishedByCategoryFn func(context.Context, uint, int, int) ([]*models.Post, error)
	listPublishedByTagFn      func(context.Context, uint, int, int) ([]*models.Post, error)
	searchFn                  func(context.Context, string, bool, int, int) ([]*models.Post, error)
	countPublishedFn          func(context.Context) (int64, error)
	countByStatusFn           func(context.Context, models.PostStatus) (int64, error)
	updateFn                  func(context.Context, *models.Post) error
	deleteFn                  func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listPublishedFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByStatus(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error) {
	return s.listByStatusFn(ctx, status, limit, offset)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, includeRejected bool, limit, offset int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, includeRejected, limit, offset)
}
func (s *postRepoStub) ListPublishedByCategory(ctx context.Context, categoryID uint, limit, offset int) ([]*models.Post, error) {
	return s.listPublishedByCategoryFn(ctx, categoryID, limit, offset)
}
func (s *postRepoStub) ListPublishedByTag(ctx context.Context, tagID uint, limit, offset int) ([]*models.Post, error) {
	return s.listPublishedByTagFn(ctx, tagID, limit, offset)
}
func (s *postRepoStub) Search(ctx context.Context, query string, publishedOnly bool, limit, offset int) ([]*models.Post, error) {
	return s.searchFn(ctx, query, publishedOnly, limit, offset)
}
func (s *postRepoStub) CountPublished(ctx context.Context) (int64, error) {
	return s.countPublishedFn(ctx)
}
func (s *postRepoStub) CountByStatus(ctx context.Context, status models.PostStatus) (int64, error) {
	return s.countByStatusFn(ctx, status)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:                  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:                 func(_ context.Context, _ uint) (*models.Post, error) { return nil, gorm.ErrRecordNotFound },
		listPublishedFn:           func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		listByStatusFn:            func(_ context.Context, _ models.PostStatus, _, _ int) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn: func(_ context.Context, _ uint, _ bool, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		listPublishedByCategoryFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		listPublishedByTagFn:      func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		searchFn: func(_ context.Context, _ string, _ bool, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		countPublishedFn:          func(_ context.Context) (int64, error) { return 0, nil },
		countByStatusFn:           func(_ context.Context, _ models.PostStatus) (int64, error) { return 0, nil },
		updateFn:                  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:                  func(_ context.Context, _ uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getByIDFn     func(context.Context, uint) (*models.Comment, error)
	listByPostFn  func(context.Context, uint, int, int) ([]*models.Comment, error)
	countByPostFn func(context.Context, uint) (int64, error)
	searchFn      func(context.Context, string, int, int) ([]*models.Comment, int64, error)
	deleteFn      func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) CountByPost(ctx context.Context, postID uint) (int64, error) {
	return s.countByPostFn(ctx, postID)
}
func (s *commentRepoStub) Search(ctx context.Context, query string, limit, offset int) ([]*models.Comment, int64, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:      func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:     func(_ context.Context, _ uint) (*models.Comment, error) { return nil, gorm.ErrRecordNotFound },
		listByPostFn:  func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, error) { return nil, nil },
		countByPostFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		searchFn: func(_ context.Context, _ string, _, _ int) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// mediaRepoStub is a stub for repository.MediaRepository.
type mediaRepoStub struct {
	createFn            func(context.Context, *models.Media) error
	getByIDFn           func(context.Context, uint) (*models.Media, error)
	listByPostFn        func(context.Context, uint) ([]*models.Media, error)
	countImagesByPostFn func(context.Context, uint) (int64, error)
	deleteFn            func(context.Context, uint) error
}

func (s *mediaRepoStub) Create(ctx context.Context, media *models.Media) error {
	return s.createFn(ctx, media)
}
func (s *mediaRepoStub) GetByID(ctx context.Context, id uint) (*models.Media, error) {
	return s.getByIDFn(ctx, id)
}
func (s *mediaRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Media, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *mediaRepoStub) CountImagesByPost(ctx context.Context, postID uint) (int64, error) {
	return s.countImagesByPostFn(ctx, postID)
}
func (s *mediaRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopMediaRepo() *mediaRepoStub {
	return &mediaRepoStub{
		createFn:            func(_ context.Context, _ *models.Media) error { return nil },
		getByIDFn:           func(_ context.Context, _ uint) (*models.Media, error) { return nil, gorm.ErrRecordNotFound },
		listByPostFn:        func(_ context.Context, _ uint) ([]*models.Media, error) { return nil, nil },
		countImagesByPostFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		deleteFn:            func(_ context.Context, _ uint) error { return nil },
	}
}

// tagRepoStub is a stub for repository.TagRepository.
type tagRepoStub struct {
	createFn         func(context.Context, *models.Tag) error
	getByIDFn        func(context.Context, uint) (*models.Tag, error)
	getBySlugFn      func(context.Context, string) (*models.Tag, error)
	getByNameFn      func(context.Context, string) (*models.Tag, error)
	listFn           func(context.Context) ([]*models.Tag, error)
	listForPostFn    func(context.Context, uint) ([]*models.Tag, error)
	updateFn         func(context.Context, *models.Tag) error
	deleteFn         func(context.Context, uint) error
	attachFn         func(context.Context, uint, uint) error
	detachFn         func(context.Context, uint, uint) error
	replaceForPostFn func(context.Context, uint, []uint) error
}

func (s *tagRepoStub) Create(ctx context.Context, tag *models.Tag) error {
	return s.createFn(ctx, tag)
}
func (s *tagRepoStub) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	return s.getByIDFn(ctx, id)
}
func (s *tagRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *tagRepoStub) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	return s.getByNameFn(ctx, name)
}
func (s *tagRepoStub) List(ctx context.Context) ([]*models.Tag, error) {
	return s.listFn(ctx)
}
func (s *tagRepoStub) ListForPost(ctx context.Context, postID uint) ([]*models.Tag, error) {
	return s.listForPostFn(ctx, postID)
}
func (s *tagRepoStub) Update(ctx context.Context, tag *models.Tag) error {
	return s.updateFn(ctx, tag)
}
func (s *tagRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *tagRepoStub) Attach(ctx context.Context, postID, tagID uint) error {
	return s.attachFn(ctx, postID, tagID)
}
func (s *tagRepoStub) Detach(ctx context.Context, postID, tagID uint) error {
	return s.detachFn(ctx, postID, tagID)
}
func (s *tagRepoStub) ReplaceForPost(ctx context.Context, postID uint, tagIDs []uint) error {
	return s.replaceForPostFn(ctx, postID, tagIDs)
}

func noopTagRepo() *tagRepoStub {
	return &tagRepoStub{
		createFn:         func(_ context.Context, _ *models.Tag) error { return nil },
		getByIDFn:        func(_ context.Context, _ uint) (*models.Tag, error) { return nil, gorm.ErrRecordNotFound },
		getBySlugFn:      func(_ context.Context, _ string) (*models.Tag, error) { return nil, gorm.ErrRecordNotFound },
		getByNameFn:      func(_ context.Context, _ string) (*models.Tag, error) { return nil, gorm.ErrRecordNotFound },
		listFn:           func(_ context.Context) ([]*models.Tag, error) { return nil, nil },
		listForPostFn:    func(_ context.Context, _ uint) ([]*models.Tag, error) { return nil, nil },
		updateFn:         func(_ context.Context, _ *models.Tag) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
		attachFn:         func(_ context.Context, _, _ uint) error { return nil },
		detachFn:         func(_ context.Context, _, _ uint) error { return nil },
		replaceForPostFn: func(_ context.Context, _ uint, _ []uint) error { return nil },
	}
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	createFn    func(context.Context, *models.Category) error
	getByIDFn   func(context.Context, uint) (*models.Category, error)
	getBySlugFn func(context.Context, string) (*models.Category, error)
	listFn      func(context.Context) ([]*models.Category, error)
	updateFn    func(context.Context, *models.Category) error
	deleteFn    func(context.Context, uint) error
}

func (s *categoryRepoStub) Create(ctx context.Context, category *models.Category) error {
	return s.createFn(ctx, category)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *categoryRepoStub) List(ctx context.Context) ([]*models.Category, error) {
	return s.listFn(ctx)
}
func (s *categoryRepoStub) Update(ctx context.Context, category *models.Category) error {
	return s.updateFn(ctx, category)
}
func (s *categoryRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		createFn:    func(_ context.Context, _ *models.Category) error { return nil },
		getByIDFn:   func(_ context.Context, _ uint) (*models.Category, error) { return nil, gorm.ErrRecordNotFound },
		getBySlugFn: func(_ context.Context, _ string) (*models.Category, error) { return nil, gorm.ErrRecordNotFound },
		listFn:      func(_ context.Context) ([]*models.Category, error) { return nil, nil },
		updateFn:    func(_ context.Context, _ *models.Category) error { return nil },
		deleteFn:    func(_ context.Context, _ uint) error { return nil },
	}
}

// notifRepoStub is a stub for repository.NotificationRepository.
type notifRepoStub struct {
	createBatchFn  func(context.Context, []*models.Notification, int) error
	getByIDFn      func(context.Context, uint) (*models.Notification, error)
	listByUserFn   func(context.Context, uint, bool, int, int) ([]*models.Notification, error)
	countByUserFn  func(context.Context, uint) (int64, error)
	unreadCountFn  func(context.Context, uint) (int64, error)
	markReadFn     func(context.Context, uint) error
	markAllReadFn  func(context.Context, uint) error
	deleteByUserFn func(context.Context, uint) error
}

func (s *notifRepoStub) CreateBatch(ctx context.Context, ns []*models.Notification, cap int) error {
	return s.createBatchFn(ctx, ns, cap)
}
func (s *notifRepoStub) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	return s.getByIDFn(ctx, id)
}
func (s *notifRepoStub) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	return s.listByUserFn(ctx, userID, unreadOnly, limit, offset)
}
func (s *notifRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *notifRepoStub) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}
func (s *notifRepoStub) MarkRead(ctx context.Context, id uint) error {
	return s.markReadFn(ctx, id)
}
func (s *notifRepoStub) MarkAllRead(ctx context.Context, userID uint) error {
	return s.markAllReadFn(ctx, userID)
}
func (s *notifRepoStub) DeleteByUser(ctx context.Context, userID uint) error {
	return s.deleteByUserFn(ctx, userID)
}

func noopNotifRepo() *notifRepoStub {
	return &notifRepoStub{
		createBatchFn:  func(_ context.Context, _ []*models.Notification, _ int) error { return nil },
		getByIDFn:      func(_ context.Context, _ uint) (*models.Notification, error) { return nil, gorm.ErrRecordNotFound },
		listByUserFn: func(_ context.Context, _ uint, _ bool, _, _ int) ([]*models.Notification, error) {
			return nil, nil
		},
		countByUserFn:  func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		unreadCountFn:  func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		markReadFn:     func(_ context.Context, _ uint) error { return nil },
		markAllReadFn:  func(_ context.Context, _ uint) error { return nil },
		deleteByUserFn: func(_ context.Context, _ uint) error { return nil },
	}
}

func activeAdmin(id uint) *models.User {
	return &models.User{ID: id, Role: models.RoleAdmin, Status: models.StatusActive, FullName: "Admin"}
}

func activeMember(id uint) *models.User {
	return &models.User{ID: id, Role: models.RoleMember, Status: models.StatusActive, FullName: "Member"}
}

func noopNotificationService(userRepo *userRepoStub, notifRepo *notifRepoStub) *NotificationService {
	return NewNotificationService(notifRepo, userRepo, nil, 100)
}
