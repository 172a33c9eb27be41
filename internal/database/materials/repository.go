// Package materials is the inventory ledger: it owns the copy-count
// bookkeeping and the status field of every material.
//
// The copy-count invariant enforced here:
//
//	0 <= available_copies <= total_copies
//
// Decrement is a guarded single-row UPDATE (compare-and-swap on
// available_copies > 0), so two concurrent claims of the last copy cannot
// both succeed regardless of what the callers read beforehand.
package materials

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

var (
	// ErrNotFound is returned when the material id does not resolve.
	ErrNotFound = errors.New("material not found")

	// ErrOutOfStock is returned when no copies are available to claim.
	ErrOutOfStock = errors.New("no copies available")

	// ErrActiveTransactionsExist blocks an explicit transition to available
	// while borrow or reserve records still hold copies.
	ErrActiveTransactionsExist = errors.New("cannot set to available - active transactions exist")
)

// Repository handles all material ledger operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new materials repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction. The coordinator
// uses this so ledger writes commit or roll back with the record writes.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetByID fetches a material.
func (r *Repository) GetByID(id uint) (*entities.Material, error) {
	var m entities.Material
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByAccessionNumber fetches a material by its unique accession number.
func (r *Repository) GetByAccessionNumber(accession string) (*entities.Material, error) {
	var m entities.Material
	if err := r.db.Where("accession_number = ?", accession).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns materials, optionally filtered by kind.
func (r *Repository) List(kind string) ([]entities.Material, error) {
	var ms []entities.Material
	query := r.db.Order("name ASC")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Find(&ms).Error
	return ms, err
}

// Create persists a new material. Available copies default to the total.
func (r *Repository) Create(m *entities.Material) error {
	if m.TotalCopies < 1 {
		m.TotalCopies = 1
	}
	if m.AvailableCopies == 0 {
		m.AvailableCopies = m.TotalCopies
	}
	if m.Status == "" {
		m.Status = entities.MaterialAvailable
	}
	return r.db.Create(m).Error
}

// UpdateFields applies a partial update of catalog fields. Copy counts and
// status are not accepted here; those go through the ledger operations.
func (r *Repository) UpdateFields(id uint, fields map[string]any) error {
	delete(fields, "available_copies")
	delete(fields, "status")
	res := r.db.Model(&entities.Material{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a material from the catalog.
func (r *Repository) Delete(id uint) error {
	res := r.db.Delete(&entities.Material{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementAvailable claims one copy of the material. Fails with
// ErrOutOfStock when no copy is free, ErrNotFound when the id does not
// resolve. When the last copy is claimed the material flips to borrowed.
func (r *Repository) DecrementAvailable(id uint) error {
	res := r.db.Model(&entities.Material{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&entities.Material{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrOutOfStock
	}

	return r.db.Model(&entities.Material{}).
		Where("id = ? AND available_copies <= 0", id).
		UpdateColumn("status", entities.MaterialBorrowed).Error
}

// IncrementAvailable releases one copy back to the shelf, capped at the
// total, then recomputes the status from the remaining active transactions.
func (r *Repository) IncrementAvailable(id uint) error {
	res := r.db.Model(&entities.Material{}).
		Where("id = ? AND available_copies < total_copies", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return res.Error
	}
	return r.RecomputeStatus(id)
}

// ActiveTransactionCounts returns how many borrow and reserve records still
// hold copies of the material.
func (r *Repository) ActiveTransactionCounts(id uint) (borrows int64, reserves int64, err error) {
	err = r.db.Model(&entities.BorrowRecord{}).
		Where("material_id = ? AND status IN ?", id, entities.ActiveBorrowStatuses).
		Count(&borrows).Error
	if err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&entities.ReserveRecord{}).
		Where("material_id = ? AND status IN ?", id, entities.ActiveReserveStatuses).
		Count(&reserves).Error
	return borrows, reserves, err
}

// AssertAvailableTransitionAllowed guards explicit status writes: a material
// cannot be marked available while any active borrow or reserve exists.
func (r *Repository) AssertAvailableTransitionAllowed(id uint) error {
	borrows, reserves, err := r.ActiveTransactionCounts(id)
	if err != nil {
		return err
	}
	if borrows > 0 || reserves > 0 {
		return ErrActiveTransactionsExist
	}
	return nil
}

// SetStatus writes the status directly. Callers are expected to have run
// the available-transition guard first where it applies.
func (r *Repository) SetStatus(id uint, status entities.MaterialStatus) error {
	res := r.db.Model(&entities.Material{}).Where("id = ?", id).
		UpdateColumn("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ComputeStatus derives the material status from its active transaction set.
// Priority: any borrowed/overdue borrow wins, then a pending borrow, then an
// active reservation, then available.
func (r *Repository) ComputeStatus(id uint) (entities.MaterialStatus, error) {
	var borrowStatuses []entities.BorrowStatus
	err := r.db.Model(&entities.BorrowRecord{}).
		Where("material_id = ? AND status IN ?", id, entities.ActiveBorrowStatuses).
		Distinct().Pluck("status", &borrowStatuses).Error
	if err != nil {
		return "", err
	}

	hasPending := false
	for _, s := range borrowStatuses {
		switch s {
		case entities.BorrowBorrowed, entities.BorrowOverdue:
			return entities.MaterialBorrowed, nil
		case entities.BorrowPending:
			hasPending = true
		}
	}
	if hasPending {
		return entities.MaterialPending, nil
	}

	var reserves int64
	err = r.db.Model(&entities.ReserveRecord{}).
		Where("material_id = ? AND status IN ?", id, entities.ActiveReserveStatuses).
		Count(&reserves).Error
	if err != nil {
		return "", err
	}
	if reserves > 0 {
		return entities.MaterialReserved, nil
	}
	return entities.MaterialAvailable, nil
}

// RecomputeStatus writes the derived status back. Copy counts are never
// touched here: they are the authoritative record kept by the coordinator.
func (r *Repository) RecomputeStatus(id uint) error {
	status, err := r.ComputeStatus(id)
	if err != nil {
		return err
	}
	return r.db.Model(&entities.Material{}).Where("id = ? AND status <> ?", id, status).
		UpdateColumn("status", status).Error
}

// AllIDs lists every material id, for the reconciler's full pass.
func (r *Repository) AllIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.Material{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// UpdateRating stores a recomputed rating rollup.
func (r *Repository) UpdateRating(id uint, average float64, count int) error {
	return r.db.Model(&entities.Material{}).Where("id = ?", id).
		UpdateColumns(map[string]any{
			"average_rating": average,
			"rating_count":   count,
		}).Error
}

// Describe returns a short human-readable label used in notifications.
func Describe(m *entities.Material) string {
	if m == nil {
		return "this material"
	}
	return fmt.Sprintf("%q", m.Name)
}
