// Package http exposes the JSON API over gin. Controllers stay thin: they
// parse, call the coordinator or a repository, and translate domain errors
// to status codes.
package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mfajardo/libcirc/internal/auth"
	"github.com/mfajardo/libcirc/internal/circulation"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 response. The actual
// error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondDomainError maps a coordinator error to its status code.
// Business-rule violations carry their own message; anything unrecognized
// is a 500 and stays opaque.
func respondDomainError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, circulation.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, circulation.ErrInvalidPickupWindow),
		errors.Is(err, circulation.ErrInvalidStatus),
		errors.Is(err, circulation.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, circulation.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, circulation.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, circulation.ErrOutOfStock),
		errors.Is(err, circulation.ErrInvalidStateTransition),
		errors.Is(err, circulation.ErrActiveTransactionsExist),
		errors.Is(err, circulation.ErrDuplicateRating),
		errors.Is(err, circulation.ErrStorageConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		respondInternalError(c, err, context)
	}
}

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Responds with a 400 error and returns false on failure.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// requirePrincipal returns the authenticated principal or responds 401.
func requirePrincipal(c *gin.Context) (circulation.Principal, bool) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return circulation.Principal{}, false
	}
	return principal, true
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// idempotencyKey reads the optional Idempotency-Key header, falling back to
// the body field. A present but malformed key is rejected rather than
// silently ignored, so a retry never creates a duplicate. Returns false
// after responding 400.
func idempotencyKey(c *gin.Context, bodyKey string) (string, bool) {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		key = bodyKey
	}
	if key == "" {
		return "", true
	}
	if _, err := uuid.Parse(key); err != nil {
		respondBadRequest(c, "idempotency key must be a valid UUID")
		return "", false
	}
	return key, true
}
