// Package borrows persists borrow records and their status transitions.
package borrows

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

// ErrNotFound is returned when a borrow record id does not resolve.
var ErrNotFound = errors.New("borrow record not found")

// Repository handles all borrow record database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new borrows repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create persists a new borrow record.
func (r *Repository) Create(rec *entities.BorrowRecord) error {
	return r.db.Create(rec).Error
}

// GetByID fetches a borrow record with its material preloaded.
func (r *Repository) GetByID(id uint) (*entities.BorrowRecord, error) {
	var rec entities.BorrowRecord
	if err := r.db.Preload("Material").First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetByIdempotencyKey fetches the record created by a previous attempt of
// the same logical request, if any.
func (r *Repository) GetByIdempotencyKey(key string) (*entities.BorrowRecord, error) {
	var rec entities.BorrowRecord
	err := r.db.Preload("Material").Where("idempotency_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListAll returns every borrow record, newest first.
func (r *Repository) ListAll() ([]entities.BorrowRecord, error) {
	var recs []entities.BorrowRecord
	err := r.db.Preload("Material").Order("created_at DESC").Find(&recs).Error
	return recs, err
}

// ListByUser returns a user's borrow records, newest first.
func (r *Repository) ListByUser(userID uint) ([]entities.BorrowRecord, error) {
	var recs []entities.BorrowRecord
	err := r.db.Preload("Material").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&recs).Error
	return recs, err
}

// Transition moves a record from one of the given statuses, applying the
// updates in the same guarded UPDATE. It reports whether the row actually
// moved, so callers only release a copy when this transition claimed the
// record. Running the same transition twice is therefore harmless.
func (r *Repository) Transition(id uint, from []entities.BorrowStatus, updates map[string]any) (bool, error) {
	res := r.db.Model(&entities.BorrowRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateFine refreshes the derived overdue figures on a record. The write
// is guarded on the record still being overdue: a return that lands between
// the sweep's read and this write clears the figures, and the refresh must
// not put them back. Reports whether the row was updated.
func (r *Repository) UpdateFine(id uint, daysOverdue int, amountDue float64) (bool, error) {
	res := r.db.Model(&entities.BorrowRecord{}).
		Where("id = ? AND status = ?", id, entities.BorrowOverdue).
		Updates(map[string]any{
			"days_overdue": daysOverdue,
			"amount_due":   amountDue,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DueForOverdue lists records that should transition to overdue: still
// holding a copy in a pre-overdue state and past their due date.
func (r *Repository) DueForOverdue(now time.Time) ([]entities.BorrowRecord, error) {
	var recs []entities.BorrowRecord
	err := r.db.Where("status IN ? AND return_date < ?",
		[]entities.BorrowStatus{entities.BorrowPending, entities.BorrowBorrowed}, now).
		Find(&recs).Error
	return recs, err
}

// Overdue lists records already marked overdue, for fine refresh.
func (r *Repository) Overdue() ([]entities.BorrowRecord, error) {
	var recs []entities.BorrowRecord
	err := r.db.Where("status = ?", entities.BorrowOverdue).Find(&recs).Error
	return recs, err
}

// UnclaimedBefore lists pending records whose borrow date is older than the
// cutoff; these were requested but never picked up.
func (r *Repository) UnclaimedBefore(cutoff time.Time) ([]entities.BorrowRecord, error) {
	var recs []entities.BorrowRecord
	err := r.db.Where("status = ? AND borrow_date < ?", entities.BorrowPending, cutoff).
		Find(&recs).Error
	return recs, err
}
