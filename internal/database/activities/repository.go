// Package activities persists the activity log written by the recorder.
package activities

import (
	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

// Repository handles all activity log database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new activities repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an activity entry.
func (r *Repository) Create(a *entities.Activity) error {
	return r.db.Create(a).Error
}

// ListRecent returns the newest entries across all users.
func (r *Repository) ListRecent(limit int) ([]entities.Activity, error) {
	var as []entities.Activity
	if limit <= 0 {
		limit = 100
	}
	err := r.db.Order("created_at DESC").Limit(limit).Find(&as).Error
	return as, err
}

// ListForUser returns the newest entries for one user.
func (r *Repository) ListForUser(userID uint, limit int) ([]entities.Activity, error) {
	var as []entities.Activity
	if limit <= 0 {
		limit = 100
	}
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&as).Error
	return as, err
}
