package service

import (
	"context"
	"errors"
	"time"

	"dojo/internal/cache"
	"dojo/internal/models"
	"dojo/internal/observability"
	"dojo/internal/repository"

	"gorm.io/gorm"
)

// NotificationService fans events out into per-recipient records and serves
// each user's notification feed.
type NotificationService struct {
	notifRepo    repository.NotificationRepository
	userRepo     repository.UserRepository
	cache        *cache.Cache
	retentionCap int
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	c *cache.Cache,
	retentionCap int,
) *NotificationService {
	return &NotificationService{
		notifRepo:    notifRepo,
		userRepo:     userRepo,
		cache:        c,
		retentionCap: retentionCap,
	}
}

// NotifyAllUsers writes one record per active account except the actor. The
// whole fan-out commits or rolls back as a unit, and every recipient is
// pruned back to the retention cap in the same transaction.
func (s *NotificationService) NotifyAllUsers(ctx context.Context, actorID uint, typ models.NotificationType, title, message, link string) error {
	users, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	var batch []*models.Notification
	for _, u := range users {
		if u.ID == actorID {
			continue
		}
		batch = append(batch, &models.Notification{
			UserID:  u.ID,
			Type:    typ,
			Title:   title,
			Message: message,
			Link:    link,
		})
	}
	if len(batch) == 0 {
		return nil
	}

	if err := s.notifRepo.CreateBatch(ctx, batch, s.retentionCap); err != nil {
		return err
	}
	observability.NotificationFanout.WithLabelValues(string(typ)).Add(float64(len(batch)))

	for _, n := range batch {
		s.cache.InvalidateUnreadCount(ctx, n.UserID)
	}
	return nil
}

// NotifyUser writes a single record for one recipient. Inactive recipients
// and self-notification are silently skipped.
func (s *NotificationService) NotifyUser(ctx context.Context, actorID, recipientID uint, typ models.NotificationType, title, message, link string) error {
	if recipientID == actorID {
		return nil
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !recipient.IsActive() {
		return nil
	}

	batch := []*models.Notification{{
		UserID:  recipientID,
		Type:    typ,
		Title:   title,
		Message: message,
		Link:    link,
	}}
	if err := s.notifRepo.CreateBatch(ctx, batch, s.retentionCap); err != nil {
		return err
	}
	observability.NotificationFanout.WithLabelValues(string(typ)).Inc()
	s.cache.InvalidateUnreadCount(ctx, recipientID)
	return nil
}

// List returns a page of the user's own notifications, newest first. With
// unreadOnly set the page and the total both cover unread records only.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	notifications, err := s.notifRepo.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if unreadOnly {
		total, err = s.notifRepo.UnreadCount(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		return notifications, total, nil
	}
	total, err = s.notifRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// UnreadCount returns the user's unread total, cached briefly.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	key := cache.UnreadCountKey(userID)

	var cached int64
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	count, err := s.notifRepo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.cache.SetJSON(ctx, key, count, time.Minute)
	return count, nil
}

// MarkRead marks one of the user's own notifications as read. A record
// belonging to someone else is reported as not found, not forbidden.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	n, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Notification", id)
		}
		return err
	}
	if n.UserID != userID {
		return models.NewNotFoundError("Notification", id)
	}

	if err := s.notifRepo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateUnreadCount(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.notifRepo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.cache.InvalidateUnreadCount(ctx, userID)
	return nil
}
