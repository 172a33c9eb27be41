// Package notifications persists user notifications created by the emitter.
package notifications

import (
	"time"

	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

// Repository handles all notification database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a notification.
func (r *Repository) Create(n *entities.Notification) error {
	if n.Priority == "" {
		n.Priority = entities.PriorityMedium
	}
	return r.db.Create(n).Error
}

// ListForUser returns a user's notifications, newest first.
func (r *Repository) ListForUser(userID uint, unreadOnly bool, limit int) ([]entities.Notification, error) {
	var ns []entities.Notification
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&ns).Error
	return ns, err
}

// MarkRead flags one of the user's notifications as read. Reports whether a
// row was updated (false when the id is unknown or owned by someone else).
func (r *Repository) MarkRead(id, userID uint) (bool, error) {
	res := r.db.Model(&entities.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UnreadCount returns how many unread notifications the user has.
func (r *Repository) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// DeleteReadOlderThan prunes read notifications past the retention window.
func (r *Repository) DeleteReadOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := r.db.Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&entities.Notification{})
	return res.RowsAffected, res.Error
}
