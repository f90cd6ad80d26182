package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"path"

	"dojo/internal/cache"
	"dojo/internal/config"
	"dojo/internal/models"
	"dojo/internal/observability"
	"dojo/internal/repository"
	"dojo/internal/storage"
	"dojo/internal/validation"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
	"gorm.io/gorm"
)

const jpegQuality = 85

// MediaService processes image uploads and registers video embeds.
type MediaService struct {
	mediaRepo repository.MediaRepository
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	store     storage.Store
	cfg       *config.Config
	cache     *cache.Cache
}

// UploadImageInput carries one image upload for a post.
type UploadImageInput struct {
	PostID   uint
	Filename string
	Content  []byte
}

// NewMediaService creates a new media service
func NewMediaService(
	mediaRepo repository.MediaRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	store storage.Store,
	cfg *config.Config,
	c *cache.Cache,
) *MediaService {
	return &MediaService{
		mediaRepo: mediaRepo,
		postRepo:  postRepo,
		userRepo:  userRepo,
		store:     store,
		cfg:       cfg,
		cache:     c,
	}
}

// UploadImage validates, normalizes and stores an image for a post. Images
// wider than the configured maximum are downscaled; transparency is
// flattened onto white; everything is re-encoded as JPEG so the stored form
// is independent of the uploaded container.
func (s *MediaService) UploadImage(ctx context.Context, actor *models.User, in UploadImageInput) (*models.Media, error) {
	post, err := s.postForAttachment(ctx, actor, in.PostID)
	if err != nil {
		return nil, err
	}

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.cfg.MaxUploadBytes() {
		observability.MediaUploads.WithLabelValues("image", "rejected").Inc()
		return nil, models.NewPayloadTooLargeError(
			fmt.Sprintf("File too large (max %dMB)", s.cfg.MaxUploadSizeMB))
	}
	if !validation.AllowedExtension(in.Filename, s.cfg.ImageExtensions()) {
		observability.MediaUploads.WithLabelValues("image", "rejected").Inc()
		return nil, models.NewValidationError("File extension not allowed")
	}
	if !validation.AllowedMimeType(http.DetectContentType(in.Content), []string{"image/*"}) {
		observability.MediaUploads.WithLabelValues("image", "rejected").Inc()
		return nil, models.NewValidationError("File is not an image")
	}

	count, err := s.mediaRepo.CountImagesByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.cfg.MaxImagesPerPost) {
		return nil, models.NewLimitExceededError(
			fmt.Sprintf("A post can hold at most %d images", s.cfg.MaxImagesPerPost))
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		observability.MediaUploads.WithLabelValues("image", "rejected").Inc()
		return nil, models.NewValidationError("Invalid image file")
	}

	processed := flattenToWhite(decoded)
	if processed.Bounds().Dx() > s.cfg.MaxImageWidth {
		processed = resizeToWidth(processed, s.cfg.MaxImageWidth)
	}

	encoded, err := encodeJPEG(processed, jpegQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	filePath := path.Join("posts", uuid.NewString()+".jpg")
	if err := s.store.Save(filePath, encoded); err != nil {
		observability.MediaUploads.WithLabelValues("image", "failed").Inc()
		return nil, models.NewStorageError(err)
	}

	bounds := processed.Bounds()
	media := &models.Media{
		PostID:   post.ID,
		Type:     models.MediaImage,
		FilePath: filePath,
		Filename: validation.SanitizeFilename(in.Filename),
		MimeType: "image/jpeg",
		FileSize: int64(len(encoded)),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}
	if err := s.mediaRepo.Create(ctx, media); err != nil {
		// The record failed; do not leave the file behind.
		_ = s.store.Delete(filePath)
		observability.MediaUploads.WithLabelValues("image", "failed").Inc()
		return nil, err
	}

	observability.MediaUploads.WithLabelValues("image", "ok").Inc()
	s.cache.InvalidatePost(ctx, post.ID)
	return media, nil
}

// AddVideoEmbed registers a provider video link on a post. The embed markup
// is synthesized at registration time, never from user-supplied HTML.
func (s *MediaService) AddVideoEmbed(ctx context.Context, actor *models.User, postID uint, rawURL string) (*models.Media, error) {
	post, err := s.postForAttachment(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	if !validation.ValidVideoEmbedURL(rawURL) {
		observability.MediaUploads.WithLabelValues("video", "rejected").Inc()
		return nil, models.NewValidationError("URL is not a recognized video provider link")
	}

	media := &models.Media{
		PostID:    post.ID,
		Type:      models.MediaVideo,
		URL:       rawURL,
		EmbedHTML: validation.VideoEmbedHTML(rawURL),
	}
	if err := s.mediaRepo.Create(ctx, media); err != nil {
		return nil, err
	}

	observability.MediaUploads.WithLabelValues("video", "ok").Inc()
	s.cache.InvalidatePost(ctx, post.ID)
	return media, nil
}

// UploadAvatar stores a square profile image for the user, center-cropped
// and scaled to the configured avatar size.
func (s *MediaService) UploadAvatar(ctx context.Context, actor *models.User, userID uint, filename string, content []byte) (*models.User, error) {
	caps := actor.CapabilitiesFor(userID)
	if !caps.CanModerate && !caps.CanSelf {
		return nil, models.NewForbiddenError("Not allowed to change this avatar")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, err
	}

	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.cfg.AvatarMaxBytes() {
		return nil, models.NewPayloadTooLargeError(
			fmt.Sprintf("File too large (max %dMB)", s.cfg.AvatarMaxSizeMB))
	}
	if !validation.AllowedExtension(filename, s.cfg.ImageExtensions()) {
		return nil, models.NewValidationError("File extension not allowed")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	avatar := squareAvatar(flattenToWhite(decoded), s.cfg.AvatarSize)
	encoded, err := encodeJPEG(avatar, jpegQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	filePath := path.Join("avatars", uuid.NewString()+".jpg")
	if err := s.store.Save(filePath, encoded); err != nil {
		return nil, models.NewStorageError(err)
	}

	previous := user.Avatar
	user.Avatar = filePath
	if err := s.userRepo.Update(ctx, user); err != nil {
		_ = s.store.Delete(filePath)
		return nil, err
	}
	if previous != "" {
		_ = s.store.Delete(previous)
	}

	return user, nil
}

// Delete removes one media row and its stored file. Deleting an already
// removed file is not an error.
func (s *MediaService) Delete(ctx context.Context, actor *models.User, id uint) error {
	media, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Media", id)
		}
		return err
	}

	post, err := s.postRepo.GetByID(ctx, media.PostID)
	if err != nil {
		return err
	}
	if !post.CanEdit(actor) {
		return models.NewForbiddenError("Not allowed to modify this post's media")
	}

	if err := s.mediaRepo.Delete(ctx, id); err != nil {
		return err
	}
	if media.IsUploaded() {
		if err := s.store.Delete(media.FilePath); err != nil {
			return models.NewStorageError(err)
		}
	}
	s.cache.InvalidatePost(ctx, media.PostID)
	return nil
}

// ListByPost returns a post's attachments in creation order.
func (s *MediaService) ListByPost(ctx context.Context, postID uint) ([]*models.Media, error) {
	return s.mediaRepo.ListByPost(ctx, postID)
}

// ReadFile loads the stored bytes of an uploaded media row.
func (s *MediaService) ReadFile(ctx context.Context, id uint) (*models.Media, []byte, error) {
	media, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.NewNotFoundError("Media", id)
		}
		return nil, nil, err
	}
	if !media.IsUploaded() {
		return nil, nil, models.NewInvalidStateError("Media has no stored file")
	}
	data, err := s.store.Read(media.FilePath)
	if err != nil {
		return nil, nil, models.NewStorageError(err)
	}
	return media, data, nil
}

// postForAttachment loads the post and checks the actor may attach to it.
func (s *MediaService) postForAttachment(ctx context.Context, actor *models.User, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, err
	}
	if !post.CanEdit(actor) {
		return nil, models.NewForbiddenError("Not allowed to attach media to this post")
	}
	return post, nil
}

// flattenToWhite composites the image onto a white background, discarding
// any alpha channel so JPEG encoding cannot go black.
func flattenToWhite(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}

// resizeToWidth scales the image down to the given width, keeping aspect.
func resizeToWidth(src *image.RGBA, width int) *image.RGBA {
	bounds := src.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// squareAvatar center-crops to a square and scales to size × size.
func squareAvatar(src *image.RGBA, size int) *image.RGBA {
	bounds := src.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	x := bounds.Min.X + (bounds.Dx()-side)/2
	y := bounds.Min.Y + (bounds.Dy()-side)/2
	crop := image.Rect(x, y, x+side, y+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
