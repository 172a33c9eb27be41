package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/scheduler"
)

// SweepRunner runs one expiry sweep on demand.
type SweepRunner interface {
	Run() (scheduler.SweepStats, error)
}

// BorrowController serves the borrow request endpoints.
type BorrowController struct {
	coordinator *circulation.Coordinator
	store       *borrows.Repository
	sweeper     SweepRunner
}

// NewBorrowController creates a new borrow controller.
func NewBorrowController(coordinator *circulation.Coordinator, store *borrows.Repository, sweeper SweepRunner) *BorrowController {
	return &BorrowController{
		coordinator: coordinator,
		store:       store,
		sweeper:     sweeper,
	}
}

type createBorrowRequest struct {
	MaterialID     uint   `json:"material_id" binding:"required"`
	ReturnDate     string `json:"return_date"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Create files a borrow request for the authenticated user.
func (controller *BorrowController) Create(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body createBorrowRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "material_id is required")
		return
	}

	req := circulation.BorrowRequest{
		MaterialID: body.MaterialID,
		UserID:     principal.ID,
	}
	if body.ReturnDate != "" {
		due, err := parseDate(body.ReturnDate)
		if err != nil {
			respondBadRequest(c, "invalid return_date")
			return
		}
		req.DueDate = due
	}
	key, ok := idempotencyKey(c, body.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	rec, err := controller.coordinator.CreateBorrow(req)
	if err != nil {
		respondDomainError(c, err, "create borrow request")
		return
	}
	respondCreated(c, rec)
}

type adminBorrowRequest struct {
	MaterialID     uint   `json:"material_id" binding:"required"`
	UserID         uint   `json:"user_id" binding:"required"`
	ReturnDate     string `json:"return_date"`
	IdempotencyKey string `json:"idempotency_key"`
}

// AdminCreate issues a material directly to a user, skipping the approval
// step.
func (controller *BorrowController) AdminCreate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body adminBorrowRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "material_id and user_id are required")
		return
	}

	req := circulation.BorrowRequest{
		MaterialID: body.MaterialID,
		UserID:     body.UserID,
	}
	if body.ReturnDate != "" {
		due, err := parseDate(body.ReturnDate)
		if err != nil {
			respondBadRequest(c, "invalid return_date")
			return
		}
		req.DueDate = due
	}
	key, ok := idempotencyKey(c, body.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	rec, err := controller.coordinator.AdminDirectBorrow(req, principal)
	if err != nil {
		respondDomainError(c, err, "admin direct borrow")
		return
	}
	respondCreated(c, rec)
}

// ListAll returns every borrow request.
func (controller *BorrowController) ListAll(c *gin.Context) {
	recs, err := controller.store.ListAll()
	if err != nil {
		respondInternalError(c, err, "list borrow requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": recs, "count": len(recs)})
}

// ListMine returns the authenticated user's borrow requests.
func (controller *BorrowController) ListMine(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	recs, err := controller.store.ListByUser(principal.ID)
	if err != nil {
		respondInternalError(c, err, "list user borrow requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": recs, "count": len(recs)})
}

// Return marks a borrow returned.
func (controller *BorrowController) Return(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := controller.coordinator.ReturnBorrow(id, principal)
	if err != nil {
		respondDomainError(c, err, "return borrow")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Cancel cancels a borrow request.
func (controller *BorrowController) Cancel(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := controller.coordinator.CancelBorrow(id, principal)
	if err != nil {
		respondDomainError(c, err, "cancel borrow")
		return
	}
	c.JSON(http.StatusOK, rec)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus applies an explicit status to a borrow record.
func (controller *BorrowController) SetStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body setStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "status is required")
		return
	}

	rec, err := controller.coordinator.AdminSetBorrowStatus(id, body.Status, principal)
	if err != nil {
		respondDomainError(c, err, "set borrow status")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CheckOverdue runs one expiry sweep immediately and reports its stats.
func (controller *BorrowController) CheckOverdue(c *gin.Context) {
	stats, err := controller.sweeper.Run()
	if err != nil {
		respondInternalError(c, err, "run expiry sweep")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"marked_overdue":       stats.MarkedOverdue,
		"refreshed_fines":      stats.RefreshedFines,
		"expired_reservations": stats.ExpiredReservations,
		"cancelled_unclaimed":  stats.CancelledUnclaimed,
	})
}
