package service

import (
	"context"
	"testing"

	"dojo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_NotifyAllUsersExcludesActor(t *testing.T) {
	userRepo := noopUserRepo()
	userRepo.listActiveFn = func(_ context.Context) ([]*models.User, error) {
		return []*models.User{activeAdmin(1), activeMember(5), activeMember(6)}, nil
	}
	notifRepo := noopNotifRepo()
	var batch []*models.Notification
	var gotCap int
	notifRepo.createBatchFn = func(_ context.Context, ns []*models.Notification, cap int) error {
		batch = ns
		gotCap = cap
		return nil
	}
	svc := NewNotificationService(notifRepo, userRepo, nil, 100)

	err := svc.NotifyAllUsers(context.Background(), 5, models.NotifyAdminPost,
		"New post", "A new post has been published", "/posts/1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, 100, gotCap)
	for _, n := range batch {
		assert.NotEqual(t, uint(5), n.UserID)
		assert.False(t, n.Read)
	}
}

func TestNotificationService_NotifyAllUsersNoRecipientsNoWrite(t *testing.T) {
	userRepo := noopUserRepo()
	userRepo.listActiveFn = func(_ context.Context) ([]*models.User, error) {
		return []*models.User{activeMember(5)}, nil
	}
	notifRepo := noopNotifRepo()
	called := false
	notifRepo.createBatchFn = func(_ context.Context, _ []*models.Notification, _ int) error {
		called = true
		return nil
	}
	svc := NewNotificationService(notifRepo, userRepo, nil, 100)

	require.NoError(t, svc.NotifyAllUsers(context.Background(), 5, models.NotifyAdminPost, "t", "m", "/"))
	assert.False(t, called)
}

func TestNotificationService_NotifyUser(t *testing.T) {
	userRepo := noopUserRepo()
	userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return activeMember(id), nil
	}
	notifRepo := noopNotifRepo()
	var batch []*models.Notification
	notifRepo.createBatchFn = func(_ context.Context, ns []*models.Notification, _ int) error {
		batch = ns
		return nil
	}
	svc := NewNotificationService(notifRepo, userRepo, nil, 100)

	err := svc.NotifyUser(context.Background(), 5, 7, models.NotifyPostComment, "t", "m", "/posts/1")
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, uint(7), batch[0].UserID)
}

func TestNotificationService_NotifyUserSkips(t *testing.T) {
	notifRepo := noopNotifRepo()
	called := false
	notifRepo.createBatchFn = func(_ context.Context, _ []*models.Notification, _ int) error {
		called = true
		return nil
	}

	// Self-notification.
	svc := NewNotificationService(notifRepo, noopUserRepo(), nil, 100)
	require.NoError(t, svc.NotifyUser(context.Background(), 7, 7, models.NotifyPostComment, "t", "m", "/"))
	assert.False(t, called)

	// Missing recipient.
	require.NoError(t, svc.NotifyUser(context.Background(), 5, 99, models.NotifyPostComment, "t", "m", "/"))
	assert.False(t, called)

	// Inactive recipient.
	userRepo := noopUserRepo()
	userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		u := activeMember(id)
		u.Status = models.StatusInactive
		return u, nil
	}
	svc = NewNotificationService(notifRepo, userRepo, nil, 100)
	require.NoError(t, svc.NotifyUser(context.Background(), 5, 7, models.NotifyPostComment, "t", "m", "/"))
	assert.False(t, called)
}

func TestNotificationService_MarkRead(t *testing.T) {
	notifRepo := noopNotifRepo()
	notifRepo.getByIDFn = func(_ context.Context, id uint) (*models.Notification, error) {
		return &models.Notification{ID: id, UserID: 7}, nil
	}
	var marked uint
	notifRepo.markReadFn = func(_ context.Context, id uint) error {
		marked = id
		return nil
	}
	svc := NewNotificationService(notifRepo, noopUserRepo(), nil, 100)
	ctx := context.Background()

	require.NoError(t, svc.MarkRead(ctx, 7, 3))
	assert.Equal(t, uint(3), marked)

	// Someone else's record reads as missing, not forbidden.
	err := svc.MarkRead(ctx, 5, 3)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestNotificationService_MarkReadMissing(t *testing.T) {
	svc := NewNotificationService(noopNotifRepo(), noopUserRepo(), nil, 100)
	err := svc.MarkRead(context.Background(), 7, 99)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestNotificationService_UnreadCountFallsThroughWithoutCache(t *testing.T) {
	notifRepo := noopNotifRepo()
	notifRepo.unreadCountFn = func(_ context.Context, _ uint) (int64, error) { return 4, nil }
	svc := NewNotificationService(notifRepo, noopUserRepo(), nil, 100)

	count, err := svc.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestNotificationService_ListUnreadOnly(t *testing.T) {
	notifRepo := noopNotifRepo()
	var gotUnreadOnly bool
	notifRepo.listByUserFn = func(_ context.Context, _ uint, unreadOnly bool, _, _ int) ([]*models.Notification, error) {
		gotUnreadOnly = unreadOnly
		return []*models.Notification{{ID: 1, UserID: 7}}, nil
	}
	notifRepo.unreadCountFn = func(_ context.Context, _ uint) (int64, error) { return 1, nil }
	notifRepo.countByUserFn = func(_ context.Context, _ uint) (int64, error) { return 5, nil }
	svc := NewNotificationService(notifRepo, noopUserRepo(), nil, 100)
	ctx := context.Background()

	_, total, err := svc.List(ctx, 7, true, 10, 0)
	require.NoError(t, err)
	assert.True(t, gotUnreadOnly)
	assert.Equal(t, int64(1), total, "unread-only listing totals unread records")

	_, total, err = svc.List(ctx, 7, false, 10, 0)
	require.NoError(t, err)
	assert.False(t, gotUnreadOnly)
	assert.Equal(t, int64(5), total)
}
