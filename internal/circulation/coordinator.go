// Package circulation implements the borrow/reserve lifecycle coordinator.
//
// Every user-visible action (borrow-create, reserve-create, return, cancel,
// admin status change) runs as a single database transaction spanning the
// inventory ledger and the record stores: both commit or neither does.
// Notification and activity-log side effects happen after commit, are
// best-effort, and never fail the primary operation.
package circulation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/ratings"
	"github.com/mfajardo/libcirc/internal/database/reserves"
	"github.com/mfajardo/libcirc/internal/entities"
)

// maxConflictRetries bounds how often a contended transaction is retried
// before surfacing ErrStorageConflict.
const maxConflictRetries = 3

// Principal is the authenticated caller supplied by the auth collaborator.
type Principal struct {
	ID   uint
	Role entities.Role
}

// IsAdmin reports whether the principal may perform privileged operations.
func (p Principal) IsAdmin() bool {
	return p.Role == entities.RoleAdmin
}

// Notifier receives fire-and-forget notification requests. Implementations
// must swallow their own errors; the coordinator never checks them.
type Notifier interface {
	BorrowRequested(userID uint, material string, borrowID uint)
	BorrowApproved(userID uint, material string, borrowID uint)
	BookReturned(userID uint, material string, borrowID uint)
	ReservationRequested(userID uint, material string, reserveID uint)
	ReservationApproved(userID uint, material string, reserveID uint)
	ReservationConverted(userID uint, material string, reserveID uint)
	ReservationCancelled(userID uint, material string, reserveID uint)
}

// ActivityRecorder receives fire-and-forget activity log entries.
type ActivityRecorder interface {
	Record(actorID uint, action, details string)
}

// Policy holds the loan rules the coordinator applies.
type Policy struct {
	DailyFineRate float64
	LoanPeriod    time.Duration // due period for conversions and direct borrows
	PickupWindow  time.Duration // max gap between reservation and pickup date
}

// Coordinator executes lifecycle operations atomically against the ledger
// and the record stores.
type Coordinator struct {
	db        *gorm.DB
	materials *materials.Repository
	borrows   *borrows.Repository
	reserves  *reserves.Repository
	ratings   *ratings.Repository
	policy    Policy

	notifier Notifier
	activity ActivityRecorder
	now      func() time.Time
}

// NewCoordinator creates a coordinator over the given database.
func NewCoordinator(db *gorm.DB, policy Policy) *Coordinator {
	if policy.LoanPeriod <= 0 {
		policy.LoanPeriod = 7 * 24 * time.Hour
	}
	if policy.PickupWindow <= 0 {
		policy.PickupWindow = 3 * 24 * time.Hour
	}
	return &Coordinator{
		db:        db,
		materials: materials.NewRepository(db),
		borrows:   borrows.NewRepository(db),
		reserves:  reserves.NewRepository(db),
		ratings:   ratings.NewRepository(db),
		policy:    policy,
		now:       time.Now,
	}
}

// SetNotifier attaches the notification emitter.
func (c *Coordinator) SetNotifier(n Notifier) {
	c.notifier = n
}

// SetActivityRecorder attaches the activity log recorder.
func (c *Coordinator) SetActivityRecorder(a ActivityRecorder) {
	c.activity = a
}

// SetClock overrides the time source.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// BorrowRequest are the inputs for CreateBorrow and AdminDirectBorrow.
type BorrowRequest struct {
	MaterialID     uint
	UserID         uint
	DueDate        time.Time
	IdempotencyKey string // optional client-assigned UUID
}

// ReserveRequest are the inputs for CreateReservation.
type ReserveRequest struct {
	MaterialID      uint
	UserID          uint
	ReservationDate time.Time // zero means now
	PickupDate      time.Time
	IdempotencyKey  string // optional client-assigned UUID
}

// errIdempotentReplay signals that a concurrent request with the same key
// won the insert race; the caller returns that request's record instead.
var errIdempotentReplay = errors.New("idempotent replay")

// CreateBorrow files a borrow request: creates a pending record and claims
// one copy from the ledger, atomically. A retry carrying the same
// idempotency key returns the original record without claiming again.
func (c *Coordinator) CreateBorrow(req BorrowRequest) (*entities.BorrowRecord, error) {
	due := req.DueDate
	if due.IsZero() {
		due = c.now().Add(c.policy.LoanPeriod)
	}

	var rec *entities.BorrowRecord
	var replay bool
	err := c.inTx(func(tx *gorm.DB) error {
		rec, replay = nil, false
		b := c.borrows.WithTx(tx)
		m := c.materials.WithTx(tx)

		if req.IdempotencyKey != "" {
			existing, err := b.GetByIdempotencyKey(req.IdempotencyKey)
			if err == nil {
				rec, replay = existing, true
				return nil
			}
			if !errors.Is(err, borrows.ErrNotFound) {
				return err
			}
		}

		if err := m.DecrementAvailable(req.MaterialID); err != nil {
			return mapLedgerErr(err)
		}

		nr := &entities.BorrowRecord{
			MaterialID:    req.MaterialID,
			UserID:        req.UserID,
			BorrowDate:    c.now(),
			ReturnDate:    due,
			Status:        entities.BorrowPending,
			PaymentStatus: entities.PaymentUnpaid,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			nr.IdempotencyKey = &key
		}
		if err := b.Create(nr); err != nil {
			if req.IdempotencyKey != "" && isUniqueViolation(err) {
				return errIdempotentReplay
			}
			return err
		}
		rec = nr
		return nil
	})
	if errors.Is(err, errIdempotentReplay) {
		return c.borrows.GetByIdempotencyKey(req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	if !replay {
		if c.notifier != nil {
			c.notifier.BorrowRequested(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
		}
		c.record(req.UserID, entities.ActionBorrowAdd,
			fmt.Sprintf("requested to borrow %s", c.materialLabel(rec.MaterialID)))
	}
	return rec, nil
}

// CreateReservation files a reservation: creates a pending record and claims
// one copy, atomically. The pickup date must fall within the configured
// window after the reservation date.
func (c *Coordinator) CreateReservation(req ReserveRequest) (*entities.ReserveRecord, error) {
	resDate := req.ReservationDate
	if resDate.IsZero() {
		resDate = c.now()
	}
	if req.PickupDate.After(resDate.Add(c.policy.PickupWindow)) {
		return nil, ErrInvalidPickupWindow
	}

	var rec *entities.ReserveRecord
	var replay bool
	err := c.inTx(func(tx *gorm.DB) error {
		rec, replay = nil, false
		rr := c.reserves.WithTx(tx)
		m := c.materials.WithTx(tx)

		if req.IdempotencyKey != "" {
			existing, err := rr.GetByIdempotencyKey(req.IdempotencyKey)
			if err == nil {
				rec, replay = existing, true
				return nil
			}
			if !errors.Is(err, reserves.ErrNotFound) {
				return err
			}
		}

		if err := m.DecrementAvailable(req.MaterialID); err != nil {
			return mapLedgerErr(err)
		}

		nr := &entities.ReserveRecord{
			MaterialID:      req.MaterialID,
			UserID:          req.UserID,
			ReservationDate: resDate,
			PickupDate:      req.PickupDate,
			Status:          entities.ReservePending,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			nr.IdempotencyKey = &key
		}
		if err := rr.Create(nr); err != nil {
			if req.IdempotencyKey != "" && isUniqueViolation(err) {
				return errIdempotentReplay
			}
			return err
		}
		rec = nr
		return nil
	})
	if errors.Is(err, errIdempotentReplay) {
		return c.reserves.GetByIdempotencyKey(req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	if !replay {
		if c.notifier != nil {
			c.notifier.ReservationRequested(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
		}
		c.record(req.UserID, entities.ActionReserveAdd,
			fmt.Sprintf("reserved %s for pickup by %s",
				c.materialLabel(rec.MaterialID), req.PickupDate.Format("2006-01-02")))
	}
	return rec, nil
}

// ReturnBorrow marks an active borrow returned and releases the copy.
// Allowed for the owning user or an admin.
func (c *Coordinator) ReturnBorrow(borrowID uint, actor Principal) (*entities.BorrowRecord, error) {
	var rec *entities.BorrowRecord
	err := c.inTx(func(tx *gorm.DB) error {
		b := c.borrows.WithTx(tx)
		m := c.materials.WithTx(tx)

		cur, err := b.GetByID(borrowID)
		if err != nil {
			return mapRecordErr(err)
		}
		if cur.UserID != actor.ID && !actor.IsAdmin() {
			return ErrForbidden
		}
		if !cur.Status.Active() {
			return ErrInvalidStateTransition
		}

		now := c.now()
		moved, err := b.Transition(borrowID, entities.ActiveBorrowStatuses, map[string]any{
			"status":             entities.BorrowReturned,
			"actual_return_date": now,
			"days_overdue":       0,
			"amount_due":         0,
			"payment_status":     entities.PaymentPaid,
		})
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}
		if err := m.IncrementAvailable(cur.MaterialID); err != nil {
			return err
		}

		rec, err = b.GetByID(borrowID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if c.notifier != nil {
		c.notifier.BookReturned(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
	}
	c.record(actor.ID, entities.ActionReturn,
		fmt.Sprintf("returned %s", c.materialLabel(rec.MaterialID)))
	return rec, nil
}

// CancelBorrow cancels a borrow that has not gone overdue yet and releases
// the copy. Allowed for the owning user or an admin.
func (c *Coordinator) CancelBorrow(borrowID uint, actor Principal) (*entities.BorrowRecord, error) {
	cancellable := []entities.BorrowStatus{entities.BorrowPending, entities.BorrowBorrowed}

	var rec *entities.BorrowRecord
	err := c.inTx(func(tx *gorm.DB) error {
		b := c.borrows.WithTx(tx)
		m := c.materials.WithTx(tx)

		cur, err := b.GetByID(borrowID)
		if err != nil {
			return mapRecordErr(err)
		}
		if cur.UserID != actor.ID && !actor.IsAdmin() {
			return ErrForbidden
		}

		now := c.now()
		moved, err := b.Transition(borrowID, cancellable, map[string]any{
			"status":       entities.BorrowCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}
		if err := m.IncrementAvailable(cur.MaterialID); err != nil {
			return err
		}

		rec, err = b.GetByID(borrowID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(actor.ID, entities.ActionCancel,
		fmt.Sprintf("cancelled borrow request for %s", c.materialLabel(rec.MaterialID)))
	return rec, nil
}

// CancelReservation cancels a reservation that still holds a copy and
// releases it. Allowed for the owning user or an admin.
func (c *Coordinator) CancelReservation(reserveID uint, actor Principal) (*entities.ReserveRecord, error) {
	var rec *entities.ReserveRecord
	err := c.inTx(func(tx *gorm.DB) error {
		rr := c.reserves.WithTx(tx)
		m := c.materials.WithTx(tx)

		cur, err := rr.GetByID(reserveID)
		if err != nil {
			return mapRecordErr(err)
		}
		if cur.UserID != actor.ID && !actor.IsAdmin() {
			return ErrForbidden
		}

		now := c.now()
		moved, err := rr.Transition(reserveID, entities.ActiveReserveStatuses, map[string]any{
			"status":       entities.ReserveCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}
		if err := m.IncrementAvailable(cur.MaterialID); err != nil {
			return err
		}

		rec, err = rr.GetByID(reserveID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() && actor.ID != rec.UserID && c.notifier != nil {
		c.notifier.ReservationCancelled(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
	}
	c.record(actor.ID, entities.ActionCancel,
		fmt.Sprintf("cancelled reservation for %s", c.materialLabel(rec.MaterialID)))
	return rec, nil
}

// AdminSetBorrowStatus applies an explicit status to a borrow record with
// the state-specific side effects: returned and cancelled release the copy,
// borrowed stamps the pickup time. Terminal records reject any transition.
func (c *Coordinator) AdminSetBorrowStatus(borrowID uint, newStatus string, actor Principal) (*entities.BorrowRecord, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	status := entities.BorrowStatus(newStatus)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var rec *entities.BorrowRecord
	var noop bool
	err := c.inTx(func(tx *gorm.DB) error {
		rec, noop = nil, false
		b := c.borrows.WithTx(tx)
		m := c.materials.WithTx(tx)

		cur, err := b.GetByID(borrowID)
		if err != nil {
			return mapRecordErr(err)
		}
		if cur.Status == status {
			rec, noop = cur, true
			return nil
		}
		if cur.Status.Terminal() {
			return ErrInvalidStateTransition
		}

		now := c.now()
		updates := map[string]any{"status": status}
		release := false
		switch status {
		case entities.BorrowReturned:
			updates["actual_return_date"] = now
			updates["days_overdue"] = 0
			updates["amount_due"] = 0
			updates["payment_status"] = entities.PaymentPaid
			release = true
		case entities.BorrowCancelled:
			updates["cancelled_at"] = now
			release = true
		case entities.BorrowBorrowed:
			updates["borrowed_at"] = now
		case entities.BorrowOverdue:
			updates["days_overdue"] = DaysOverdue(now, cur.ReturnDate)
			updates["amount_due"] = FineAmount(now, cur.ReturnDate, c.policy.DailyFineRate)
		}

		moved, err := b.Transition(borrowID, []entities.BorrowStatus{cur.Status}, updates)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}

		if release {
			if err := m.IncrementAvailable(cur.MaterialID); err != nil {
				return err
			}
		} else if status == entities.BorrowOverdue {
			if err := m.SetStatus(cur.MaterialID, entities.MaterialOverdue); err != nil {
				return err
			}
		} else {
			if err := m.RecomputeStatus(cur.MaterialID); err != nil {
				return err
			}
		}

		rec, err = b.GetByID(borrowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return rec, nil
	}

	if c.notifier != nil {
		switch status {
		case entities.BorrowBorrowed:
			c.notifier.BorrowApproved(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
		case entities.BorrowReturned:
			c.notifier.BookReturned(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
		}
	}
	c.record(actor.ID, entities.ActionStatusChange,
		fmt.Sprintf("set borrow request %d to %s", rec.ID, status))
	return rec, nil
}

// AdminSetReserveStatus applies an explicit status to a reservation.
// Setting borrowed converts it: a borrow record is spawned in borrowed
// state and the copy is carried over, not released. Cancelled, rejected and
// expired release the copy.
func (c *Coordinator) AdminSetReserveStatus(reserveID uint, newStatus string, actor Principal) (*entities.ReserveRecord, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	status := entities.ReserveStatus(newStatus)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var rec *entities.ReserveRecord
	var noop bool
	err := c.inTx(func(tx *gorm.DB) error {
		rec, noop = nil, false
		rr := c.reserves.WithTx(tx)
		b := c.borrows.WithTx(tx)
		m := c.materials.WithTx(tx)

		cur, err := rr.GetByID(reserveID)
		if err != nil {
			return mapRecordErr(err)
		}
		if cur.Status == status {
			rec, noop = cur, true
			return nil
		}
		if cur.Status.Terminal() {
			return ErrInvalidStateTransition
		}

		now := c.now()
		updates := map[string]any{"status": status}
		release := false
		switch status {
		case entities.ReserveApproved:
			updates["approved_at"] = now
		case entities.ReserveCancelled:
			updates["cancelled_at"] = now
			release = true
		case entities.ReserveRejected, entities.ReserveExpired:
			release = true
		}

		moved, err := rr.Transition(reserveID, []entities.ReserveStatus{cur.Status}, updates)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidStateTransition
		}

		if status == entities.ReserveBorrowed {
			// Conversion: the copy moves to the spawned borrow record.
			spawned := &entities.BorrowRecord{
				MaterialID:    cur.MaterialID,
				UserID:        cur.UserID,
				ReservationID: &cur.ID,
				BorrowDate:    now,
				ReturnDate:    now.Add(c.policy.LoanPeriod),
				Status:        entities.BorrowBorrowed,
				BorrowedAt:    &now,
				PaymentStatus: entities.PaymentUnpaid,
			}
			if err := b.Create(spawned); err != nil {
				return err
			}
			if err := m.RecomputeStatus(cur.MaterialID); err != nil {
				return err
			}
		} else if release {
			if err := m.IncrementAvailable(cur.MaterialID); err != nil {
				return err
			}
		}

		rec, err = rr.GetByID(reserveID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return rec, nil
	}

	if c.notifier != nil {
		label := c.materialLabel(rec.MaterialID)
		switch status {
		case entities.ReserveApproved:
			c.notifier.ReservationApproved(rec.UserID, label, rec.ID)
		case entities.ReserveBorrowed:
			c.notifier.ReservationConverted(rec.UserID, label, rec.ID)
		case entities.ReserveCancelled, entities.ReserveRejected:
			c.notifier.ReservationCancelled(rec.UserID, label, rec.ID)
		}
	}
	c.record(actor.ID, entities.ActionStatusChange,
		fmt.Sprintf("set reservation %d to %s", rec.ID, status))
	return rec, nil
}

// AdminDirectBorrow creates a borrow already in borrowed state, bypassing
// the request/approval step, for librarian-initiated loans.
func (c *Coordinator) AdminDirectBorrow(req BorrowRequest, actor Principal) (*entities.BorrowRecord, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	due := req.DueDate
	if due.IsZero() {
		due = c.now().Add(c.policy.LoanPeriod)
	}

	var rec *entities.BorrowRecord
	var replay bool
	err := c.inTx(func(tx *gorm.DB) error {
		rec, replay = nil, false
		b := c.borrows.WithTx(tx)
		m := c.materials.WithTx(tx)

		if req.IdempotencyKey != "" {
			existing, err := b.GetByIdempotencyKey(req.IdempotencyKey)
			if err == nil {
				rec, replay = existing, true
				return nil
			}
			if !errors.Is(err, borrows.ErrNotFound) {
				return err
			}
		}

		if err := m.DecrementAvailable(req.MaterialID); err != nil {
			return mapLedgerErr(err)
		}

		now := c.now()
		nr := &entities.BorrowRecord{
			MaterialID:    req.MaterialID,
			UserID:        req.UserID,
			BorrowDate:    now,
			ReturnDate:    due,
			Status:        entities.BorrowBorrowed,
			BorrowedAt:    &now,
			PaymentStatus: entities.PaymentUnpaid,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			nr.IdempotencyKey = &key
		}
		if err := b.Create(nr); err != nil {
			if req.IdempotencyKey != "" && isUniqueViolation(err) {
				return errIdempotentReplay
			}
			return err
		}
		rec = nr
		return nil
	})
	if errors.Is(err, errIdempotentReplay) {
		return c.borrows.GetByIdempotencyKey(req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	if !replay {
		if c.notifier != nil {
			c.notifier.BorrowApproved(rec.UserID, c.materialLabel(rec.MaterialID), rec.ID)
		}
		c.record(actor.ID, entities.ActionAdminBorrowCreate,
			fmt.Sprintf("issued %s to user %d", c.materialLabel(rec.MaterialID), req.UserID))
	}
	return rec, nil
}

// SetMaterialStatus writes a material's status directly. A transition to
// available is blocked while active borrow or reserve records exist.
func (c *Coordinator) SetMaterialStatus(materialID uint, newStatus string, actor Principal) (*entities.Material, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	status := entities.MaterialStatus(newStatus)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var mat *entities.Material
	err := c.inTx(func(tx *gorm.DB) error {
		m := c.materials.WithTx(tx)
		if _, err := m.GetByID(materialID); err != nil {
			return mapLedgerErr(err)
		}
		if status == entities.MaterialAvailable {
			if err := m.AssertAvailableTransitionAllowed(materialID); err != nil {
				return err
			}
		}
		if err := m.SetStatus(materialID, status); err != nil {
			return mapLedgerErr(err)
		}
		var err error
		mat, err = m.GetByID(materialID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(actor.ID, entities.ActionMaterialUpdate,
		fmt.Sprintf("set material %d status to %s", materialID, status))
	return mat, nil
}

// RateBorrow records a review for a completed borrow and refreshes the
// material's rating rollup. One rating per (user, borrow) pair.
func (c *Coordinator) RateBorrow(borrowID uint, stars int, review string, actor Principal) (*entities.Rating, error) {
	if stars < 1 || stars > 5 {
		return nil, ErrInvalidRating
	}

	var rating *entities.Rating
	err := c.inTx(func(tx *gorm.DB) error {
		b := c.borrows.WithTx(tx)
		rt := c.ratings.WithTx(tx)
		m := c.materials.WithTx(tx)

		cur, err := b.GetByID(borrowID)
		if err != nil {
			return mapRecordErr(err)
		}
		if cur.UserID != actor.ID {
			return ErrForbidden
		}
		if cur.Status != entities.BorrowReturned {
			return ErrInvalidStateTransition
		}

		rating = &entities.Rating{
			UserID:     actor.ID,
			BorrowID:   borrowID,
			MaterialID: cur.MaterialID,
			Stars:      stars,
			Review:     review,
		}
		if err := rt.Create(rating); err != nil {
			return err
		}

		average, count, err := rt.AverageForMaterial(cur.MaterialID)
		if err != nil {
			return err
		}
		return m.UpdateRating(cur.MaterialID, average, int(count))
	})
	if err != nil {
		return nil, err
	}

	c.record(actor.ID, entities.ActionRatingAdd,
		fmt.Sprintf("rated %s %d/5", c.materialLabel(rating.MaterialID), stars))
	return rating, nil
}

// inTx runs fn inside a transaction, retrying a bounded number of times on
// write contention. Re-running the closure re-validates every precondition
// against fresh state, so a retry after losing a race can still fail with
// the correct business error.
func (c *Coordinator) inTx(fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = c.db.Transaction(fn)
		if !isConflict(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
	return fmt.Errorf("%w: %v", ErrStorageConflict, err)
}

func (c *Coordinator) materialLabel(id uint) string {
	m, err := c.materials.GetByID(id)
	if err != nil {
		return "this material"
	}
	return materials.Describe(m)
}

func (c *Coordinator) record(actorID uint, action, details string) {
	if c.activity != nil {
		c.activity.Record(actorID, action, details)
	}
}

func mapLedgerErr(err error) error {
	if errors.Is(err, materials.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func mapRecordErr(err error) error {
	if errors.Is(err, borrows.ErrNotFound) || errors.Is(err, reserves.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
