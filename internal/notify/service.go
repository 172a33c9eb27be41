// Package notify builds user-facing notification messages for lifecycle
// events and hands them to the task queue for delivery.
package notify

import (
	"fmt"
	"log"

	"github.com/mikestefanello/backlite"

	"github.com/mfajardo/libcirc/internal/database/notifications"
	"github.com/mfajardo/libcirc/internal/entities"
	"github.com/mfajardo/libcirc/internal/tasks"
)

// Enqueuer is the slice of the task client the service needs.
type Enqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// Service emits notifications for circulation events. Delivery goes through
// the task queue when one is attached and falls back to an async direct
// write otherwise. Failures are logged, never returned: notification loss
// must not fail the operation that triggered it.
type Service struct {
	queue Enqueuer
	repo  *notifications.Repository
}

// NewService creates a notification service writing through repo.
func NewService(repo *notifications.Repository) *Service {
	return &Service{repo: repo}
}

// SetQueue routes delivery through the task queue.
func (s *Service) SetQueue(q Enqueuer) {
	s.queue = q
}

// BorrowRequested tells the user their borrow request was received.
func (s *Service) BorrowRequested(userID uint, material string, borrowID uint) {
	s.deliver(userID, entities.NotificationBorrowRequested,
		"Borrow request received",
		fmt.Sprintf("Your request to borrow %s has been received and is awaiting approval.", material),
		borrowID, "borrow", entities.PriorityMedium)
}

// BorrowApproved tells the user their borrow request was approved.
func (s *Service) BorrowApproved(userID uint, material string, borrowID uint) {
	s.deliver(userID, entities.NotificationBorrowApproved,
		"Borrow request approved",
		fmt.Sprintf("Your request to borrow %s has been approved. The item is ready for pickup.", material),
		borrowID, "borrow", entities.PriorityHigh)
}

// BookReturned confirms a completed return.
func (s *Service) BookReturned(userID uint, material string, borrowID uint) {
	s.deliver(userID, entities.NotificationBookReturned,
		"Return recorded",
		fmt.Sprintf("Your return of %s has been recorded. Thank you!", material),
		borrowID, "borrow", entities.PriorityLow)
}

// ReservationRequested tells the user their reservation was received.
func (s *Service) ReservationRequested(userID uint, material string, reserveID uint) {
	s.deliver(userID, entities.NotificationReservationRequested,
		"Reservation received",
		fmt.Sprintf("Your reservation for %s has been received and is awaiting approval.", material),
		reserveID, "reserve", entities.PriorityMedium)
}

// ReservationApproved tells the user their reservation was approved.
func (s *Service) ReservationApproved(userID uint, material string, reserveID uint) {
	s.deliver(userID, entities.NotificationReservationApproved,
		"Reservation approved",
		fmt.Sprintf("Your reservation for %s has been approved. Please pick it up by the scheduled date.", material),
		reserveID, "reserve", entities.PriorityHigh)
}

// ReservationConverted tells the user their reservation became a loan.
func (s *Service) ReservationConverted(userID uint, material string, reserveID uint) {
	s.deliver(userID, entities.NotificationReservationConverted,
		"Reservation picked up",
		fmt.Sprintf("Your reservation for %s has been converted to a borrow. Enjoy!", material),
		reserveID, "reserve", entities.PriorityMedium)
}

// ReservationCancelled tells the user their reservation was cancelled by staff.
func (s *Service) ReservationCancelled(userID uint, material string, reserveID uint) {
	s.deliver(userID, entities.NotificationReservationCancelled,
		"Reservation cancelled",
		fmt.Sprintf("Your reservation for %s has been cancelled.", material),
		reserveID, "reserve", entities.PriorityMedium)
}

// ReservationExpired tells the user their reservation lapsed unclaimed.
func (s *Service) ReservationExpired(userID uint, material string, reserveID uint) {
	s.deliver(userID, entities.NotificationReservationExpired,
		"Reservation expired",
		fmt.Sprintf("Your reservation for %s has expired because it was not picked up in time.", material),
		reserveID, "reserve", entities.PriorityMedium)
}

func (s *Service) deliver(userID uint, ntype, title, message string, relatedID uint, relatedType string, priority entities.NotificationPriority) {
	if s.queue != nil {
		related := relatedID
		task := tasks.CreateNotificationTask{
			UserID:      userID,
			Type:        ntype,
			Title:       title,
			Message:     message,
			RelatedID:   &related,
			RelatedType: relatedType,
			Priority:    priority,
		}
		if _, err := s.queue.Add(task).Save(); err != nil {
			log.Printf("Failed to enqueue %s notification for user %d: %v", ntype, userID, err)
		}
		return
	}

	// No queue attached: write directly, off the caller's goroutine.
	go func() {
		related := relatedID
		n := &entities.Notification{
			UserID:      userID,
			Type:        ntype,
			Title:       title,
			Message:     message,
			RelatedID:   &related,
			RelatedType: relatedType,
			Priority:    priority,
		}
		if err := s.repo.Create(n); err != nil {
			log.Printf("Failed to create %s notification for user %d: %v", ntype, userID, err)
		}
	}()
}
