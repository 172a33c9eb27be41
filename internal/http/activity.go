package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/database/activities"
)

// ActivityController serves the activity log endpoints.
type ActivityController struct {
	store *activities.Repository
}

// NewActivityController creates a new activity controller.
func NewActivityController(store *activities.Repository) *ActivityController {
	return &ActivityController{store: store}
}

// ListRecent returns the newest activity entries. Supports ?limit=N and
// ?user_id=N.
func (controller *ActivityController) ListRecent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		entries, err := controller.store.ListForUser(uint(userID), limit)
		if err != nil {
			respondInternalError(c, err, "list user activity")
			return
		}
		c.JSON(http.StatusOK, gin.H{"activity": entries, "count": len(entries)})
		return
	}

	entries, err := controller.store.ListRecent(limit)
	if err != nil {
		respondInternalError(c, err, "list activity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries, "count": len(entries)})
}
