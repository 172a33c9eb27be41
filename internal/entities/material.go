package entities

import (
	"time"
)

type MaterialStatus string

const (
	MaterialAvailable MaterialStatus = "available"
	MaterialReserved  MaterialStatus = "reserved"
	MaterialPending   MaterialStatus = "pending"
	MaterialBorrowed  MaterialStatus = "borrowed"
	MaterialOverdue   MaterialStatus = "overdue"
	MaterialCancelled MaterialStatus = "cancelled"
)

// Valid reports whether s is a recognized material status.
func (s MaterialStatus) Valid() bool {
	switch s {
	case MaterialAvailable, MaterialReserved, MaterialPending,
		MaterialBorrowed, MaterialOverdue, MaterialCancelled:
		return true
	}
	return false
}

// Material is a catalog item with a finite copy count. AvailableCopies and
// Status are owned by the inventory ledger: they are mutated only through
// coordinator operations or the status reconciler, never directly by handlers.
type Material struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	AccessionNumber string         `gorm:"uniqueIndex;size:64" json:"accession_number"`
	Name            string         `gorm:"index;size:512" json:"name"`
	Author          string         `gorm:"size:256" json:"author,omitempty"`
	Kind            string         `gorm:"index;size:64" json:"kind"` // book, journal, thesis, ...
	Edition         string         `gorm:"size:64" json:"edition,omitempty"`
	YearOfPub       string         `gorm:"size:16" json:"year_of_pub,omitempty"`
	ISBN            string         `gorm:"size:20" json:"isbn,omitempty"`
	ISSN            string         `gorm:"size:20" json:"issn,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	ImageURL        string         `gorm:"size:2048" json:"image_url,omitempty"`
	Status          MaterialStatus `gorm:"size:20;index;default:'available'" json:"status"`
	TotalCopies     int            `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int            `gorm:"not null;default:1" json:"available_copies"`
	AverageRating   float64        `gorm:"default:0" json:"average_rating"`
	RatingCount     int            `gorm:"default:0" json:"rating_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
