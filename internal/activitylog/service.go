// Package activitylog records who did what, asynchronously.
package activitylog

import (
	"log"

	"github.com/mfajardo/libcirc/internal/database/activities"
	"github.com/mfajardo/libcirc/internal/entities"
)

// Service writes activity entries without blocking the caller. Entries are
// advisory: a failed write is logged and dropped.
type Service struct {
	repo *activities.Repository
}

// NewService creates an activity log service writing through repo.
func NewService(repo *activities.Repository) *Service {
	return &Service{repo: repo}
}

// Record persists an activity entry on a separate goroutine.
func (s *Service) Record(actorID uint, action, details string) {
	go func() {
		entry := &entities.Activity{
			UserID:  actorID,
			Action:  action,
			Details: details,
		}
		if err := s.repo.Create(entry); err != nil {
			log.Printf("Failed to record %s activity for user %d: %v", action, actorID, err)
		}
	}()
}

// RecordSync persists an activity entry on the caller's goroutine. Used by
// the one-shot maintenance commands, which exit too soon for an async write
// to land.
func (s *Service) RecordSync(actorID uint, action, details string) error {
	return s.repo.Create(&entities.Activity{
		UserID:  actorID,
		Action:  action,
		Details: details,
	})
}
