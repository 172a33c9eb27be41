// Package reserves persists reservation records and their status transitions.
package reserves

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

// ErrNotFound is returned when a reservation id does not resolve.
var ErrNotFound = errors.New("reservation not found")

// Repository handles all reservation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reserves repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create persists a new reservation.
func (r *Repository) Create(rec *entities.ReserveRecord) error {
	return r.db.Create(rec).Error
}

// GetByID fetches a reservation with its material preloaded.
func (r *Repository) GetByID(id uint) (*entities.ReserveRecord, error) {
	var rec entities.ReserveRecord
	if err := r.db.Preload("Material").First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetByIdempotencyKey fetches the reservation created by a previous attempt
// of the same logical request, if any.
func (r *Repository) GetByIdempotencyKey(key string) (*entities.ReserveRecord, error) {
	var rec entities.ReserveRecord
	err := r.db.Preload("Material").Where("idempotency_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListAll returns every reservation, newest first.
func (r *Repository) ListAll() ([]entities.ReserveRecord, error) {
	var recs []entities.ReserveRecord
	err := r.db.Preload("Material").Order("created_at DESC").Find(&recs).Error
	return recs, err
}

// ListByUser returns a user's reservations, newest first.
func (r *Repository) ListByUser(userID uint) ([]entities.ReserveRecord, error) {
	var recs []entities.ReserveRecord
	err := r.db.Preload("Material").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&recs).Error
	return recs, err
}

// Transition moves a reservation from one of the given statuses, applying
// the updates in the same guarded UPDATE, and reports whether the row moved.
// The sweeper relies on this to release a copy exactly once per expiry.
func (r *Repository) Transition(id uint, from []entities.ReserveStatus, updates map[string]any) (bool, error) {
	res := r.db.Model(&entities.ReserveRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExpiredBefore lists reservations still awaiting pickup whose pickup date
// has passed.
func (r *Repository) ExpiredBefore(now time.Time) ([]entities.ReserveRecord, error) {
	var recs []entities.ReserveRecord
	err := r.db.Where("status IN ? AND pickup_date < ?",
		[]entities.ReserveStatus{entities.ReservePending, entities.ReserveApproved}, now).
		Find(&recs).Error
	return recs, err
}
