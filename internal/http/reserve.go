package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database/reserves"
)

// ReserveController serves the reservation endpoints.
type ReserveController struct {
	coordinator *circulation.Coordinator
	store       *reserves.Repository
}

// NewReserveController creates a new reserve controller.
func NewReserveController(coordinator *circulation.Coordinator, store *reserves.Repository) *ReserveController {
	return &ReserveController{
		coordinator: coordinator,
		store:       store,
	}
}

type createReserveRequest struct {
	MaterialID      uint   `json:"material_id" binding:"required"`
	PickupDate      string `json:"pickup_date" binding:"required"`
	ReservationDate string `json:"reservation_date"`
	IdempotencyKey  string `json:"idempotency_key"`
}

// Create files a reservation for the authenticated user.
func (controller *ReserveController) Create(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body createReserveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "material_id and pickup_date are required")
		return
	}

	pickup, err := parseDate(body.PickupDate)
	if err != nil {
		respondBadRequest(c, "invalid pickup_date")
		return
	}

	req := circulation.ReserveRequest{
		MaterialID: body.MaterialID,
		UserID:     principal.ID,
		PickupDate: pickup,
	}
	if body.ReservationDate != "" {
		resDate, err := parseDate(body.ReservationDate)
		if err != nil {
			respondBadRequest(c, "invalid reservation_date")
			return
		}
		req.ReservationDate = resDate
	}
	key, ok := idempotencyKey(c, body.IdempotencyKey)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	rec, err := controller.coordinator.CreateReservation(req)
	if err != nil {
		respondDomainError(c, err, "create reservation")
		return
	}
	respondCreated(c, rec)
}

// ListMine returns the authenticated user's reservations.
func (controller *ReserveController) ListMine(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	recs, err := controller.store.ListByUser(principal.ID)
	if err != nil {
		respondInternalError(c, err, "list user reservations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": recs, "count": len(recs)})
}

// ListAll returns every reservation.
func (controller *ReserveController) ListAll(c *gin.Context) {
	recs, err := controller.store.ListAll()
	if err != nil {
		respondInternalError(c, err, "list reservations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": recs, "count": len(recs)})
}

// Cancel cancels a reservation.
func (controller *ReserveController) Cancel(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := controller.coordinator.CancelReservation(id, principal)
	if err != nil {
		respondDomainError(c, err, "cancel reservation")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// SetStatus applies an explicit status to a reservation. Setting borrowed
// converts it into a loan.
func (controller *ReserveController) SetStatus(c *gin.Context) {
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

	rec, err := controller.coordinator.AdminSetReserveStatus(id, body.Status, principal)
	if err != nil {
		respondDomainError(c, err, "set reservation status")
		return
	}
	c.JSON(http.StatusOK, rec)
}
