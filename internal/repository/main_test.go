package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"dojo/internal/database"
	"dojo/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

// newTestDB opens a private in-memory database per test so cases cannot
// interfere with each other.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled second connection would see a different empty in-memory DB.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	email := username + "@example.com"
	user := &models.User{
		Username:     username,
		PasswordHash: "x",
		Role:         role,
		Status:       models.StatusActive,
		FullName:     "User " + username,
		Email:        &email,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, author *models.User, status models.PostStatus, title string) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:    title,
		Content:  "content of " + title,
		Status:   status,
		AuthorID: author.ID,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post))
	return post
}

func createTestNotifications(t *testing.T, db *gorm.DB, userID uint, n int) {
	t.Helper()
	repo := NewNotificationRepository(db)
	for i := 0; i < n; i++ {
		batch := []*models.Notification{{
			UserID:  userID,
			Type:    models.NotifyAdminPost,
			Title:   fmt.Sprintf("Announcement %d", i),
			Message: "message",
		}}
		require.NoError(t, repo.CreateBatch(context.Background(), batch, 1000))
	}
}
