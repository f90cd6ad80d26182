package repository

import (
	"context"

	"dojo/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*models.Notification, cap int) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, userID uint) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateBatch inserts the records and prunes each recipient back down to the
// retention cap in the same transaction, so a failed fan-out leaves no
// partial state and no recipient ever holds more than cap records.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification, cap int) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, n := range notifications {
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}

		seen := make(map[uint]bool, len(notifications))
		for _, n := range notifications {
			if seen[n.UserID] {
				continue
			}
			seen[n.UserID] = true
			if err := pruneUser(tx, n.UserID, cap); err != nil {
				return err
			}
		}
		return nil
	})
}

// pruneUser removes the oldest records beyond the retention cap.
func pruneUser(tx *gorm.DB, userID uint, cap int) error {
	return tx.Exec(`
		DELETE FROM notifications
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM (
				SELECT id FROM notifications
				WHERE user_id = ?
				ORDER BY created_at DESC, id DESC
				LIMIT ?
			) keep
		)`, userID, userID, cap).Error
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}

	var notifications []*models.Notification
	err := q.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{}).Error
}
