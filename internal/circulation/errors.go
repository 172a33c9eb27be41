package circulation

import (
	"errors"

	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/ratings"
)

// Error taxonomy for coordinator operations. Business-rule violations are
// expected outcomes and map to 4xx responses; they are never retried.
var (
	// ErrNotFound: the id does not resolve to a record.
	ErrNotFound = errors.New("record not found")

	// ErrOutOfStock: no copies available to claim. Shared identity with the
	// ledger's sentinel so errors.Is works across layers.
	ErrOutOfStock = materials.ErrOutOfStock

	// ErrInvalidStateTransition: the action is not permitted from the
	// record's current status.
	ErrInvalidStateTransition = errors.New("action not permitted from current status")

	// ErrInvalidPickupWindow: pickup date falls outside the allowed window
	// after the reservation date.
	ErrInvalidPickupWindow = errors.New("pickup date outside the allowed window")

	// ErrInvalidStatus: the requested status is not a recognized value.
	ErrInvalidStatus = errors.New("unrecognized status")

	// ErrUnauthorized: no authenticated principal.
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden: the principal lacks the role or ownership required.
	ErrForbidden = errors.New("operation not allowed for this user")

	// ErrActiveTransactionsExist: a material cannot be marked available
	// while active borrow or reserve records exist.
	ErrActiveTransactionsExist = materials.ErrActiveTransactionsExist

	// ErrInvalidRating: stars outside the 1..5 range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrStorageConflict: concurrent-write contention that survived the
	// bounded internal retries.
	ErrStorageConflict = errors.New("storage conflict")

	// ErrDuplicateRating: the user already rated this borrow.
	ErrDuplicateRating = ratings.ErrDuplicate
)
