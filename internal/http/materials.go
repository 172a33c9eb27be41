package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/ratings"
	"github.com/mfajardo/libcirc/internal/entities"
)

// MaterialsController serves the catalog endpoints.
type MaterialsController struct {
	coordinator *circulation.Coordinator
	store       *materials.Repository
	borrows     *borrows.Repository
	ratings     *ratings.Repository
	activity    circulation.ActivityRecorder
}

// NewMaterialsController creates a new materials controller.
func NewMaterialsController(coordinator *circulation.Coordinator, store *materials.Repository, borrowStore *borrows.Repository, ratingStore *ratings.Repository, activity circulation.ActivityRecorder) *MaterialsController {
	return &MaterialsController{
		coordinator: coordinator,
		store:       store,
		borrows:     borrowStore,
		ratings:     ratingStore,
		activity:    activity,
	}
}

// List returns catalog materials, optionally filtered by kind.
func (controller *MaterialsController) List(c *gin.Context) {
	ms, err := controller.store.List(c.Query("kind"))
	if err != nil {
		respondInternalError(c, err, "list materials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": ms, "count": len(ms)})
}

// Get returns one material.
func (controller *MaterialsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	m, err := controller.store.GetByID(id)
	if err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			respondNotFound(c, "material")
			return
		}
		respondInternalError(c, err, "get material")
		return
	}
	c.JSON(http.StatusOK, m)
}

type createMaterialRequest struct {
	AccessionNumber string `json:"accession_number" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Author          string `json:"author"`
	Kind            string `json:"kind" binding:"required"`
	Edition         string `json:"edition"`
	YearOfPub       string `json:"year_of_pub"`
	ISBN            string `json:"isbn"`
	ISSN            string `json:"issn"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	TotalCopies     int    `json:"total_copies"`
}

// Create adds a material to the catalog.
func (controller *MaterialsController) Create(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body createMaterialRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "accession_number, name and kind are required")
		return
	}

	m := &entities.Material{
		AccessionNumber: body.AccessionNumber,
		Name:            body.Name,
		Author:          body.Author,
		Kind:            body.Kind,
		Edition:         body.Edition,
		YearOfPub:       body.YearOfPub,
		ISBN:            body.ISBN,
		ISSN:            body.ISSN,
		Description:     body.Description,
		ImageURL:        body.ImageURL,
		TotalCopies:     body.TotalCopies,
	}
	if err := controller.store.Create(m); err != nil {
		respondInternalError(c, err, "create material")
		return
	}

	if controller.activity != nil {
		controller.activity.Record(principal.ID, entities.ActionMaterialCreate,
			"added "+materials.Describe(m)+" to the catalog")
	}
	respondCreated(c, m)
}

// Update applies a partial update of catalog fields. Copy counts and status
// are rejected here; status changes go through the status endpoint.
func (controller *MaterialsController) Update(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		respondBadRequest(c, "no fields to update")
		return
	}

	if err := controller.store.UpdateFields(id, fields); err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			respondNotFound(c, "material")
			return
		}
		respondInternalError(c, err, "update material")
		return
	}

	m, err := controller.store.GetByID(id)
	if err != nil {
		respondInternalError(c, err, "update material")
		return
	}

	if controller.activity != nil {
		controller.activity.Record(principal.ID, entities.ActionMaterialUpdate,
			"updated "+materials.Describe(m))
	}
	c.JSON(http.StatusOK, m)
}

// Delete removes a material. Blocked while borrow or reserve records still
// hold copies of it.
func (controller *MaterialsController) Delete(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	m, err := controller.store.GetByID(id)
	if err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			respondNotFound(c, "material")
			return
		}
		respondInternalError(c, err, "delete material")
		return
	}

	activeBorrows, activeReserves, err := controller.store.ActiveTransactionCounts(id)
	if err != nil {
		respondInternalError(c, err, "delete material")
		return
	}
	if activeBorrows > 0 || activeReserves > 0 {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "cannot delete - active transactions exist"})
		return
	}

	if err := controller.store.Delete(id); err != nil {
		respondInternalError(c, err, "delete material")
		return
	}

	if controller.activity != nil {
		controller.activity.Record(principal.ID, entities.ActionMaterialDelete,
			"removed "+materials.Describe(m)+" from the catalog")
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "material deleted"})
}

// SetStatus writes a material's status directly.
func (controller *MaterialsController) SetStatus(c *gin.Context) {
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

	m, err := controller.coordinator.SetMaterialStatus(id, body.Status, principal)
	if err != nil {
		respondDomainError(c, err, "set material status")
		return
	}
	c.JSON(http.StatusOK, m)
}

type rateMaterialRequest struct {
	BorrowID uint   `json:"borrow_id" binding:"required"`
	Stars    int    `json:"stars" binding:"required"`
	Review   string `json:"review"`
}

// Rate records a review for a completed borrow of this material.
func (controller *MaterialsController) Rate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body rateMaterialRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "borrow_id and stars are required")
		return
	}

	rec, err := controller.borrows.GetByID(body.BorrowID)
	if err != nil {
		if errors.Is(err, borrows.ErrNotFound) {
			respondNotFound(c, "borrow record")
			return
		}
		respondInternalError(c, err, "rate material")
		return
	}
	if rec.MaterialID != id {
		respondBadRequest(c, "borrow record does not reference this material")
		return
	}

	rating, err := controller.coordinator.RateBorrow(body.BorrowID, body.Stars, body.Review, principal)
	if err != nil {
		respondDomainError(c, err, "rate material")
		return
	}
	respondCreated(c, rating)
}

// ListRatings returns a material's reviews.
func (controller *MaterialsController) ListRatings(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rs, err := controller.ratings.ListByMaterial(id)
	if err != nil {
		respondInternalError(c, err, "list ratings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": rs, "count": len(rs)})
}
