package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"dojo/internal/cache"
	"dojo/internal/config"
	"dojo/internal/database"
	"dojo/internal/middleware"
	"dojo/internal/models"
	"dojo/internal/service"
	"dojo/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "server-test-secret"

var (
	setupOnce  sync.Once
	testApp    *fiber.App
	testSrv    *Server
	testDB     *gorm.DB
	userSerial uint64
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                   "0",
		Env:                    "test",
		JWTSecret:              testJWTSecret,
		StorageBackend:         storage.BackendMemory,
		MaxUploadSizeMB:        5,
		AvatarMaxSizeMB:        2,
		AllowedImageExtensions: "jpg,jpeg,png,webp,gif",
		MaxImagesPerPost:       5,
		MaxImageWidth:          1920,
		AvatarSize:             256,
		PostsPerPage:           12,
		CommentsPerPage:        20,
		NotificationCap:        100,
	}
}

// setup builds one shared server for the whole package. Prometheus
// collectors register globally, so the server must not be constructed per
// test.
func setup(t *testing.T) (*fiber.App, *Server) {
	t.Helper()
	setupOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			panic(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			panic(err)
		}
		// A pooled second connection would see a different empty in-memory DB.
		sqlDB.SetMaxOpenConns(1)
		if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
			panic(err)
		}

		testDB = db
		testSrv = NewServerWithDeps(testConfig(), db, cache.NewWithClient(nil), storage.NewMemory())
		testApp = fiber.New()
		testSrv.SetupRoutes(testApp)
	})
	return testApp, testSrv
}

func newServerUser(t *testing.T, role models.UserRole) (*models.User, string) {
	t.Helper()
	n := atomic.AddUint64(&userSerial, 1)

	hash, err := service.HashPassword("Str0ngPass!")
	require.NoError(t, err)

	user := &models.User{
		Username:     fmt.Sprintf("user%d", n),
		PasswordHash: hash,
		Role:         role,
		Status:       models.StatusActive,
		FullName:     fmt.Sprintf("User %d", n),
	}
	require.NoError(t, testDB.Create(user).Error)

	token, err := middleware.IssueToken(testJWTSecret, user.ID)
	require.NoError(t, err)
	return user, token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	if len(data) > 0 {
		_ = json.Unmarshal(data, &decoded)
	}
	return resp, decoded
}

func TestLivenessCheck(t *testing.T) {
	app, _ := setup(t)
	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
}

func TestLogin(t *testing.T) {
	app, _ := setup(t)
	user, _ := newServerUser(t, models.RoleMember)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": user.Username,
		"password": "Str0ngPass!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": user.Username,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthenticated, body["code"])
}

func TestCreatePostRequiresAuth(t *testing.T) {
	app, _ := setup(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/posts", "", fiber.Map{
		"title": "x", "content": "y",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostWorkflowOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, memberToken := newServerUser(t, models.RoleMember)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	// Member drafts a post.
	resp, body := doJSON(t, app, http.MethodPost, "/api/posts", memberToken, fiber.Map{
		"title":   "Tournament results",
		"content": "We took **second** place.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(models.StatusDraft), body["status"])
	postID := uint(body["id"].(float64))

	// The draft is invisible to guests.
	resp, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Member submits for review; only an admin may approve.
	resp, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/submit", postID), memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusPendingApproval), body["status"])

	resp, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/approve", postID), memberToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/approve", postID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusPublished), body["status"])

	// Published detail renders markdown for everyone.
	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["content_html"], "<strong>second</strong>")
}

func TestRejectOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, memberToken := newServerUser(t, models.RoleMember)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	_, body := doJSON(t, app, http.MethodPost, "/api/posts", memberToken, fiber.Map{
		"title": "Needs work", "content": "draft",
	})
	postID := uint(body["id"].(float64))
	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/submit", postID), memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/reject", postID), adminToken, fiber.Map{
		"reason": "missing sources",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusRejected), body["status"])
	assert.Equal(t, "missing sources", body["rejection_reason"])
}

func TestRejectWithoutReasonOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, memberToken := newServerUser(t, models.RoleMember)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	_, body := doJSON(t, app, http.MethodPost, "/api/posts", memberToken, fiber.Map{
		"title": "Quiet decline", "content": "draft",
	})
	postID := uint(body["id"].(float64))
	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/submit", postID), memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/reject", postID), adminToken, fiber.Map{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusRejected), body["status"])
	assert.Empty(t, body["rejection_reason"])
}

func TestGuestCommentOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	// Admin posts publish immediately.
	_, body := doJSON(t, app, http.MethodPost, "/api/posts", adminToken, fiber.Map{
		"title": "Open training", "content": "All welcome.",
	})
	postID := uint(body["id"].(float64))

	resp, body := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), "", fiber.Map{
		"content": "Can beginners join?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Khách", body["guest_name"])

	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", postID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
}

func TestApproveFansOutNotifications(t *testing.T) {
	app, _ := setup(t)
	author, authorToken := newServerUser(t, models.RoleMember)
	other, otherToken := newServerUser(t, models.RoleMember)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	_, body := doJSON(t, app, http.MethodPost, "/api/posts", authorToken, fiber.Map{
		"title": "Fan-out check", "content": "body",
	})
	postID := uint(body["id"].(float64))
	doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/submit", postID), authorToken, nil)
	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/approve", postID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Every active user except the author hears about the publication.
	var otherUnread, authorUnread int64
	require.NoError(t, testDB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", other.ID, false).Count(&otherUnread).Error)
	require.NoError(t, testDB.Model(&models.Notification{}).
		Where("user_id = ?", author.ID).Count(&authorUnread).Error)
	assert.GreaterOrEqual(t, otherUnread, int64(1))
	assert.Zero(t, authorUnread)

	resp, body = doJSON(t, app, http.MethodGet, "/api/notifications/unread-count", otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, body["unread"].(float64), float64(1))
}

func TestUpdateMyProfilePartial(t *testing.T) {
	app, _ := setup(t)
	user, token := newServerUser(t, models.RoleMember)
	require.NoError(t, testDB.Model(user).Update("email", "old@example.com").Error)

	// Explicit null clears; absent fields stay.
	resp, body := doJSON(t, app, http.MethodPut, "/api/users/me", token, map[string]interface{}{
		"email": nil,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["email"])
	assert.Equal(t, user.FullName, body["full_name"])
}

func TestAdminOnlyUserList(t *testing.T) {
	app, _ := setup(t)
	_, memberToken := newServerUser(t, models.RoleMember)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/users", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["items"])
}

func TestTagLifecycleOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	resp, body := doJSON(t, app, http.MethodPost, "/api/tags", adminToken, fiber.Map{
		"name": "Kỹ thuật căn bản",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ky-thuat-can-ban", body["slug"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/tags/ky-thuat-can-ban", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kỹ thuật căn bản", body["name"])

	// Duplicate names conflict.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/tags", adminToken, fiber.Map{
		"name": "Kỹ thuật căn bản",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPostTagsOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	_, body := doJSON(t, app, http.MethodPost, "/api/posts", adminToken, fiber.Map{
		"title": "Tournament bracket", "content": "pairings",
	})
	postID := uint(body["id"].(float64))

	_, body = doJSON(t, app, http.MethodPost, "/api/tags", adminToken, fiber.Map{
		"name": "Giải đấu mùa thu",
	})
	tagID := uint(body["id"].(float64))

	resp, _ := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/posts/%d/tags/%d", postID, tagID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d/tags", postID), nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var tags []map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "giai-dau-mua-thu", tags[0]["slug"])
}

func TestAdminCommentSearchOverHTTP(t *testing.T) {
	app, _ := setup(t)
	_, memberToken := newServerUser(t, models.RoleMember)
	_, adminToken := newServerUser(t, models.RoleAdmin)

	_, body := doJSON(t, app, http.MethodPost, "/api/posts", adminToken, fiber.Map{
		"title": "Seminar recap", "content": "notes",
	})
	postID := uint(body["id"].(float64))
	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), memberToken, fiber.Map{
		"content": "osu-xyzzy great seminar",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/comments?q=osu-xyzzy", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/comments?q=osu-xyzzy", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
}

func TestInvalidIDRejected(t *testing.T) {
	app, _ := setup(t)
	resp, body := doJSON(t, app, http.MethodGet, "/api/posts/banana", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body["code"])
}
