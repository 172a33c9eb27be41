package entities

import (
	"time"
)

// Activity actions recorded by the activity log collaborator.
const (
	ActionBorrowAdd         = "borrow_add"
	ActionReturn            = "return"
	ActionReserveAdd        = "reserve_add"
	ActionCancel            = "cancel"
	ActionStatusChange      = "status_change"
	ActionAdminBorrowCreate = "admin_borrow_create"
	ActionRatingAdd         = "rating_add"
	ActionMaterialCreate    = "learnmat_create"
	ActionMaterialUpdate    = "learnmat_update"
	ActionMaterialDelete    = "learnmat_delete"
	ActionSweepRun          = "sweep_run"
	ActionReconcileRun      = "reconcile_run"
)

type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_activity_user_time,priority:1" json:"user_id"`
	Action    string    `gorm:"size:64;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"` // JSON blob
	CreatedAt time.Time `gorm:"index:idx_activity_user_time,priority:2" json:"created_at"`
}
