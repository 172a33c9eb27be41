package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/database/notifications"
)

// NotificationsController serves the notification inbox endpoints.
type NotificationsController struct {
	store *notifications.Repository
}

// NewNotificationsController creates a new notifications controller.
func NewNotificationsController(store *notifications.Repository) *NotificationsController {
	return &NotificationsController{store: store}
}

// List returns the authenticated user's notifications, newest first.
// Supports ?unread=true and ?limit=N.
func (controller *NotificationsController) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	ns, err := controller.store.ListForUser(principal.ID, unreadOnly, limit)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": ns, "count": len(ns)})
}

// UnreadCount returns how many unread notifications the user has.
func (controller *NotificationsController) UnreadCount(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	count, err := controller.store.UnreadCount(principal.ID)
	if err != nil {
		respondInternalError(c, err, "count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead flags one of the user's notifications as read. Notifications
// owned by other users read as not found.
func (controller *NotificationsController) MarkRead(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	updated, err := controller.store.MarkRead(id, principal.ID)
	if err != nil {
		respondInternalError(c, err, "mark notification read")
		return
	}
	if !updated {
		respondNotFound(c, "notification")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "notification marked as read"})
}
