// Package seed provides database seeding for development and first-run
// bootstrap. Defaults are idempotent and safe to run on every start; demo
// data is intended for development only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"dojo/internal/models"
	"dojo/internal/service"
	"dojo/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls demo data volume.
type Options struct {
	NumMembers int
	NumPosts   int
}

// DefaultAdminPassword is the bootstrap admin credential. Deployments must
// change it after first login.
const DefaultAdminPassword = "admin123"

var defaultCategories = []models.Category{
	{Name: "Thông báo", Description: "Club announcements", DisplayOrder: 1},
	{Name: "Sự kiện", Description: "Upcoming events and tournaments", DisplayOrder: 2},
	{Name: "Kỹ thuật", Description: "Technique breakdowns and training notes", DisplayOrder: 3},
	{Name: "Tin tức", Description: "News from around the federation", DisplayOrder: 4},
}

var defaultTags = []models.Tag{
	{Name: "Thi đấu", Color: "#d9534f"},
	{Name: "Tập luyện", Color: "#5cb85c"},
	{Name: "Lên đai", Color: "#f0ad4e"},
	{Name: "Video", Color: "#5bc0de"},
}

// EnsureDefaults creates the bootstrap admin account and the default
// taxonomy when they do not already exist. It runs on every server start.
func EnsureDefaults(db *gorm.DB) error {
	if err := ensureAdmin(db); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	for i := range defaultCategories {
		c := defaultCategories[i]
		c.Slug = slug.Generate(c.Name)
		err := db.Where(models.Category{Slug: c.Slug}).
			Attrs(c).
			FirstOrCreate(&models.Category{}).Error
		if err != nil {
			return fmt.Errorf("ensure category %q: %w", c.Name, err)
		}
	}

	for i := range defaultTags {
		t := defaultTags[i]
		t.Slug = slug.Generate(t.Name)
		err := db.Where(models.Tag{Slug: t.Slug}).
			Attrs(t).
			FirstOrCreate(&models.Tag{}).Error
		if err != nil {
			return fmt.Errorf("ensure tag %q: %w", t.Name, err)
		}
	}

	return nil
}

func ensureAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := service.HashPassword(DefaultAdminPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := models.User{
		Username:     "admin",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
		FullName:     "Quản trị viên",
		Belt:         models.BeltOrder[len(models.BeltOrder)-1],
		JoinDate:     &now,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Created bootstrap admin account %q", admin.Username)
	return nil
}

// Demo populates the database with fake members and published posts.
func Demo(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // weak randomness is fine for demo data
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := EnsureDefaults(db); err != nil {
		return err
	}

	var admin models.User
	if err := db.Where("role = ?", models.RoleAdmin).First(&admin).Error; err != nil {
		return err
	}

	hash, err := service.HashPassword("password123")
	if err != nil {
		return err
	}

	members, err := createMembers(db, r, hash, opts.NumMembers)
	if err != nil {
		return fmt.Errorf("create members: %w", err)
	}
	log.Printf("Seeded %d members", len(members))

	var categories []models.Category
	if err := db.Find(&categories).Error; err != nil {
		return err
	}

	created, err := createPosts(db, r, &admin, members, categories, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	log.Printf("Seeded %d posts", created)
	return nil
}

func createMembers(db *gorm.DB, r *rand.Rand, hash string, count int) ([]models.User, error) {
	members := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		email := gofakeit.Email()
		joined := gofakeit.DateRange(time.Now().AddDate(-4, 0, 0), time.Now())

		member := models.User{
			Username:     username,
			PasswordHash: hash,
			Role:         models.RoleMember,
			Status:       models.StatusActive,
			FullName:     gofakeit.Name(),
			Email:        &email,
			Belt:         models.BeltOrder[r.Intn(10)],
			PhoneNumber:  gofakeit.Numerify("09########"),
			JoinDate:     &joined,
		}
		// A few lapsed members make the roster realistic.
		if r.Float32() < 0.1 {
			member.Status = models.StatusInactive
		}

		if err := db.Create(&member).Error; err != nil {
			log.Printf("Skipping member %s: %v", username, err)
			continue
		}
		members = append(members, member)
	}
	return members, nil
}

func createPosts(db *gorm.DB, r *rand.Rand, admin *models.User, members []models.User, categories []models.Category, count int) (int, error) {
	created := 0
	for i := 0; i < count; i++ {
		author := admin
		if len(members) > 0 && r.Float32() < 0.6 {
			author = &members[r.Intn(len(members))]
		}

		post := models.Post{
			Title:    gofakeit.Sentence(r.Intn(5) + 3),
			Content:  gofakeit.Paragraph(2, 4, 8, "\n\n"),
			AuthorID: author.ID,
			Status:   models.StatusPublished,
		}
		if len(categories) > 0 {
			post.CategoryID = &categories[r.Intn(len(categories))].ID
		}

		publishedAt := gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now())
		post.PublishedAt = &publishedAt
		post.ReviewedByID = &admin.ID
		post.ReviewedAt = &publishedAt

		// Leave a share of posts mid-workflow so moderation screens have
		// something to show.
		switch {
		case r.Float32() < 0.1:
			post.Status = models.StatusDraft
			post.PublishedAt = nil
			post.ReviewedByID = nil
			post.ReviewedAt = nil
		case r.Float32() < 0.1:
			post.Status = models.StatusPendingApproval
			post.PublishedAt = nil
			post.ReviewedByID = nil
			post.ReviewedAt = nil
		}

		if err := db.Create(&post).Error; err != nil {
			return created, err
		}
		created++

		if post.Status != models.StatusPublished {
			continue
		}
		for c := 0; c < r.Intn(4); c++ {
			comment := models.Comment{
				PostID:  post.ID,
				Content: gofakeit.Sentence(r.Intn(10) + 3),
			}
			if len(members) > 0 && r.Float32() < 0.7 {
				comment.UserID = &members[r.Intn(len(members))].ID
			} else if r.Float32() < 0.5 {
				comment.GuestName = gofakeit.FirstName()
			}
			if err := db.Create(&comment).Error; err != nil {
				return created, err
			}
		}
	}
	return created, nil
}
