package entities

import (
	"time"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// Notification types emitted by the lifecycle coordinator.
const (
	NotificationBorrowRequested      = "borrow_requested"
	NotificationBorrowApproved       = "borrow_approved"
	NotificationBookReturned         = "book_returned"
	NotificationReservationRequested = "reservation_requested"
	NotificationReservationApproved  = "reservation_approved"
	NotificationReservationConverted = "reservation_converted_to_borrow"
	NotificationReservationCancelled = "reservation_cancelled"
	NotificationReservationExpired   = "reservation_expired"
)

type Notification struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	UserID      uint                 `gorm:"index;not null" json:"user_id"`
	Type        string               `gorm:"size:64" json:"type"`
	Title       string               `gorm:"size:256" json:"title"`
	Message     string               `gorm:"type:text" json:"message"`
	RelatedID   *uint                `json:"related_id,omitempty"`
	RelatedType string               `gorm:"size:32" json:"related_type,omitempty"` // borrow, reserve
	Priority    NotificationPriority `gorm:"size:16;default:'medium'" json:"priority"`
	Read        bool                 `gorm:"default:false;index" json:"read"`
	CreatedAt   time.Time            `json:"created_at"`
}
