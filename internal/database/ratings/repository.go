// Package ratings persists material reviews, one per (user, borrow) pair.
package ratings

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

// ErrDuplicate is returned when the user already rated this borrow.
var ErrDuplicate = errors.New("material already rated for this borrow")

// Repository handles all rating database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ratings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create persists a rating. The unique (user, borrow) index turns a
// duplicate submission into ErrDuplicate.
func (r *Repository) Create(rating *entities.Rating) error {
	if err := r.db.Create(rating).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListByMaterial returns all ratings of a material, newest first.
func (r *Repository) ListByMaterial(materialID uint) ([]entities.Rating, error) {
	var rs []entities.Rating
	err := r.db.Where("material_id = ?", materialID).
		Order("created_at DESC").Find(&rs).Error
	return rs, err
}

// AverageForMaterial computes the current rating rollup of a material.
func (r *Repository) AverageForMaterial(materialID uint) (average float64, count int64, err error) {
	err = r.db.Model(&entities.Rating{}).Where("material_id = ?", materialID).
		Count(&count).Error
	if err != nil || count == 0 {
		return 0, count, err
	}
	row := r.db.Model(&entities.Rating{}).Where("material_id = ?", materialID).
		Select("AVG(stars)").Row()
	if err := row.Scan(&average); err != nil {
		return 0, count, err
	}
	return average, count, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
