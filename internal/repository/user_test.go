package repository

import (
	"context"
	"testing"

	"dojo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "nguyen.van.a", models.RoleMember)
	sid := "HV-001"
	user.StudentID = &sid
	require.NoError(t, repo.Update(ctx, user))

	byName, err := repo.GetByUsername(ctx, "nguyen.van.a")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	bySID, err := repo.GetByStudentID(ctx, "HV-001")
	require.NoError(t, err)
	assert.Equal(t, user.ID, bySID.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.Error(t, err)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "dup", models.RoleMember)
	err := repo.Create(ctx, &models.User{
		Username:     "dup",
		PasswordHash: "x",
		Role:         models.RoleMember,
		Status:       models.StatusActive,
		FullName:     "Duplicate",
	})
	assert.Error(t, err)
}

func TestUserRepository_SearchIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := createTestUser(t, db, "minh", models.RoleMember)
	u.FullName = "Trần Văn Minh"
	require.NoError(t, repo.Update(ctx, u))
	createTestUser(t, db, "other", models.RoleMember)

	found, err := repo.Search(ctx, "minh", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, u.ID, found[0].ID)
}

func TestUserRepository_CountAdmins(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "admin1", models.RoleAdmin)
	inactive := createTestUser(t, db, "admin2", models.RoleAdmin)
	inactive.Status = models.StatusInactive
	require.NoError(t, repo.Update(ctx, inactive))
	createTestUser(t, db, "member", models.RoleMember)

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	victim := createTestUser(t, db, "victim", models.RoleMember)
	survivor := createTestUser(t, db, "survivor", models.RoleMember)

	// Victim's own post with attachments.
	post := createTestPost(t, db, victim, models.StatusPublished, "Victim post")
	require.NoError(t, NewMediaRepository(db).Create(ctx, &models.Media{
		PostID: post.ID, Type: models.MediaImage, FilePath: "posts/v.jpg",
	}))

	// Victim commented on someone else's post.
	otherPost := createTestPost(t, db, survivor, models.StatusPublished, "Survivor post")
	comment := &models.Comment{PostID: otherPost.ID, UserID: &victim.ID, Content: "nice"}
	require.NoError(t, NewCommentRepository(db).Create(ctx, comment))

	createTestNotifications(t, db, victim.ID, 2)

	require.NoError(t, repo.Delete(ctx, victim.ID))

	_, err := repo.GetByID(ctx, victim.ID)
	assert.Error(t, err)

	var postCount, mediaCount, notifCount int64
	db.Model(&models.Post{}).Where("author_id = ?", victim.ID).Count(&postCount)
	db.Model(&models.Media{}).Where("post_id = ?", post.ID).Count(&mediaCount)
	db.Model(&models.Notification{}).Where("user_id = ?", victim.ID).Count(&notifCount)
	assert.Zero(t, postCount)
	assert.Zero(t, mediaCount)
	assert.Zero(t, notifCount)

	// The comment on the surviving post is kept in guest form.
	var kept models.Comment
	require.NoError(t, db.First(&kept, comment.ID).Error)
	assert.Nil(t, kept.UserID)
	assert.Equal(t, "User victim", kept.GuestName)
	assert.Equal(t, "nice", kept.Content)
}
