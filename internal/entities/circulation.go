package entities

import (
	"time"
)

type BorrowStatus string

const (
	BorrowPending   BorrowStatus = "pending"
	BorrowBorrowed  BorrowStatus = "borrowed"
	BorrowReturned  BorrowStatus = "returned"
	BorrowOverdue   BorrowStatus = "overdue"
	BorrowCancelled BorrowStatus = "cancelled"
)

// Valid reports whether s is a recognized borrow status.
func (s BorrowStatus) Valid() bool {
	switch s {
	case BorrowPending, BorrowBorrowed, BorrowReturned, BorrowOverdue, BorrowCancelled:
		return true
	}
	return false
}

// Active reports whether a record in this status still holds a copy.
// Overdue borrows are active: the copy has not come back yet.
func (s BorrowStatus) Active() bool {
	switch s {
	case BorrowPending, BorrowBorrowed, BorrowOverdue:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s BorrowStatus) Terminal() bool {
	return s == BorrowReturned || s == BorrowCancelled
}

// ActiveBorrowStatuses is the query form of BorrowStatus.Active.
var ActiveBorrowStatuses = []BorrowStatus{BorrowPending, BorrowBorrowed, BorrowOverdue}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// BorrowRecord tracks one copy of a material loaned to one user.
// ReturnDate is the due date; ActualReturnDate is set on return.
type BorrowRecord struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	MaterialID       uint          `gorm:"index;not null" json:"material_id"`
	Material         Material      `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	UserID           uint          `gorm:"index;not null" json:"user_id"`
	User             User          `gorm:"foreignKey:UserID" json:"-"`
	ReservationID    *uint         `gorm:"index" json:"reservation_id,omitempty"` // set when spawned by a conversion
	BorrowDate       time.Time     `json:"borrow_date"`
	ReturnDate       time.Time     `gorm:"index" json:"return_date"` // due date
	ActualReturnDate *time.Time    `json:"actual_return_date,omitempty"`
	Status           BorrowStatus  `gorm:"size:20;index;default:'pending'" json:"status"`
	DaysOverdue      int           `gorm:"default:0" json:"days_overdue"`
	AmountDue        float64       `gorm:"default:0" json:"amount_due"`
	PaymentStatus    PaymentStatus `gorm:"size:20;default:'unpaid'" json:"payment_status"`
	IdempotencyKey   *string       `gorm:"uniqueIndex;size:36" json:"-"`
	BorrowedAt       *time.Time    `json:"borrowed_at,omitempty"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type ReserveStatus string

const (
	ReservePending   ReserveStatus = "pending"
	ReserveApproved  ReserveStatus = "approved"
	ReserveActive    ReserveStatus = "active"
	ReserveBorrowed  ReserveStatus = "borrowed" // converted into a borrow record
	ReserveCancelled ReserveStatus = "cancelled"
	ReserveExpired   ReserveStatus = "expired"
	ReserveRejected  ReserveStatus = "rejected"
)

// Valid reports whether s is a recognized reserve status.
func (s ReserveStatus) Valid() bool {
	switch s {
	case ReservePending, ReserveApproved, ReserveActive, ReserveBorrowed,
		ReserveCancelled, ReserveExpired, ReserveRejected:
		return true
	}
	return false
}

// Active reports whether a reservation in this status still holds a copy.
// A converted reservation does not: the copy obligation moved to the
// spawned borrow record.
func (s ReserveStatus) Active() bool {
	switch s {
	case ReservePending, ReserveApproved, ReserveActive:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s ReserveStatus) Terminal() bool {
	switch s {
	case ReserveBorrowed, ReserveCancelled, ReserveExpired, ReserveRejected:
		return true
	}
	return false
}

// ActiveReserveStatuses is the query form of ReserveStatus.Active.
var ActiveReserveStatuses = []ReserveStatus{ReservePending, ReserveApproved, ReserveActive}

// ReserveRecord holds a copy of a material for pickup within a short window.
type ReserveRecord struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	MaterialID      uint          `gorm:"index;not null" json:"material_id"`
	Material        Material      `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	UserID          uint          `gorm:"index;not null" json:"user_id"`
	User            User          `gorm:"foreignKey:UserID" json:"-"`
	ReservationDate time.Time     `json:"reservation_date"`
	PickupDate      time.Time     `gorm:"index" json:"pickup_date"`
	Status          ReserveStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	IdempotencyKey  *string       `gorm:"uniqueIndex;size:36" json:"-"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Rating is a reader's review of a material, tied to a completed borrow.
// One rating per (user, borrow) pair.
type Rating struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_rating_user_borrow;not null" json:"user_id"`
	BorrowID   uint      `gorm:"uniqueIndex:idx_rating_user_borrow;not null" json:"borrow_id"`
	MaterialID uint      `gorm:"index;not null" json:"material_id"`
	Stars      int       `gorm:"not null" json:"stars"` // 1..5
	Review     string    `gorm:"type:text" json:"review,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
