package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mfajardo/libcirc/internal/entities"
)

// NotificationStore provides the ability to persist notifications.
type NotificationStore interface {
	Create(n *entities.Notification) error
}

// CreateNotificationTask delivers one notification to a user's inbox.
type CreateNotificationTask struct {
	UserID      uint                          `json:"user_id"`
	Type        string                        `json:"type"`
	Title       string                        `json:"title"`
	Message     string                        `json:"message"`
	RelatedID   *uint                         `json:"related_id,omitempty"`
	RelatedType string                        `json:"related_type,omitempty"`
	Priority    entities.NotificationPriority `json:"priority,omitempty"`
}

// Config returns the queue configuration for notification delivery tasks.
func (t CreateNotificationTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "create_notification",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CreateNotificationProcessor creates a processor function for
// CreateNotificationTask.
func CreateNotificationProcessor(store NotificationStore) backlite.QueueProcessor[CreateNotificationTask] {
	return func(ctx context.Context, task CreateNotificationTask) error {
		if store == nil {
			return fmt.Errorf("notification store not configured")
		}

		n := &entities.Notification{
			UserID:      task.UserID,
			Type:        task.Type,
			Title:       task.Title,
			Message:     task.Message,
			RelatedID:   task.RelatedID,
			RelatedType: task.RelatedType,
			Priority:    task.Priority,
		}
		if err := store.Create(n); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	}
}

// NewCreateNotificationQueue creates a backlite queue for notification
// delivery tasks.
func NewCreateNotificationQueue(store NotificationStore) backlite.Queue {
	return backlite.NewQueue(CreateNotificationProcessor(store))
}
