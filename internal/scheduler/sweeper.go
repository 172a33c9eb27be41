// Package scheduler runs the periodic maintenance jobs: the expiry sweeper
// and the inventory reconciler.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/reserves"
	"github.com/mfajardo/libcirc/internal/entities"
	"github.com/mfajardo/libcirc/internal/tasks"
)

// ExpiryNotifier receives expiry notices for swept reservations.
type ExpiryNotifier interface {
	ReservationExpired(userID uint, material string, reserveID uint)
}

// TaskEnqueuer is the slice of the task client the sweeper needs.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// SweeperConfig configures the expiry sweeper.
type SweeperConfig struct {
	DB             *gorm.DB
	Schedule       string // cron expression, hourly by default
	DailyFineRate  float64
	UnclaimedGrace time.Duration // how long a pending borrow may sit unclaimed
	RetentionDays  int           // read-notification retention handed to cleanup
}

// SweepStats summarizes one sweeper run.
type SweepStats struct {
	MarkedOverdue       int
	RefreshedFines      int
	ExpiredReservations int
	CancelledUnclaimed  int
}

// Sweeper periodically walks time-based lifecycle transitions: it marks
// late borrows overdue, refreshes accrued fines, expires reservations past
// their pickup date and cancels long-unclaimed borrow requests. Each record
// moves in its own guarded transaction, so a crashed or concurrent run
// never releases the same copy twice and a re-run picks up where the last
// one stopped.
type Sweeper struct {
	db        *gorm.DB
	borrows   *borrows.Repository
	reserves  *reserves.Repository
	materials *materials.Repository
	config    SweeperConfig

	notifier ExpiryNotifier
	queue    TaskEnqueuer
	now      func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewSweeper creates a new sweeper instance.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 * * * *"
	}
	if cfg.UnclaimedGrace <= 0 {
		cfg.UnclaimedGrace = 24 * time.Hour
	}
	return &Sweeper{
		db:        cfg.DB,
		borrows:   borrows.NewRepository(cfg.DB),
		reserves:  reserves.NewRepository(cfg.DB),
		materials: materials.NewRepository(cfg.DB),
		config:    cfg,
		now:       time.Now,
		cron:      cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// SetNotifier attaches the expiry notice emitter.
func (s *Sweeper) SetNotifier(n ExpiryNotifier) {
	s.notifier = n
}

// SetTaskQueue makes each run enqueue a notification cleanup task.
func (s *Sweeper) SetTaskQueue(q TaskEnqueuer) {
	s.queue = q
}

// SetClock overrides the time source.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the periodic schedule.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Run(); err != nil {
			log.Printf("Expiry sweeper: run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Printf("Expiry sweeper: started with schedule '%s'", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil
	log.Printf("Expiry sweeper: stopped")
}

// RunNow triggers an immediate sweep off the caller's goroutine.
func (s *Sweeper) RunNow() {
	go func() {
		if _, err := s.Run(); err != nil {
			log.Printf("Expiry sweeper: run failed: %v", err)
		}
	}()
}

// IsRunning returns whether the scheduler is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Run executes one full sweep and returns its stats. Individual record
// failures are logged and skipped; the sweep keeps going.
func (s *Sweeper) Run() (SweepStats, error) {
	start := s.now()
	var stats SweepStats

	marked, refreshed, err := s.sweepOverdue(start)
	if err != nil {
		return stats, fmt.Errorf("overdue sweep: %w", err)
	}
	stats.MarkedOverdue, stats.RefreshedFines = marked, refreshed

	expired, err := s.sweepExpiredReservations(start)
	if err != nil {
		return stats, fmt.Errorf("reservation expiry sweep: %w", err)
	}
	stats.ExpiredReservations = expired

	cancelled, err := s.sweepUnclaimed(start)
	if err != nil {
		return stats, fmt.Errorf("unclaimed sweep: %w", err)
	}
	stats.CancelledUnclaimed = cancelled

	if s.queue != nil {
		task := tasks.CleanupNotificationsTask{RetentionDays: s.config.RetentionDays}
		if _, err := s.queue.Add(task).Save(); err != nil {
			log.Printf("Expiry sweeper: failed to enqueue notification cleanup: %v", err)
		}
	}

	log.Printf("Expiry sweeper: %d marked overdue, %d fines refreshed, %d reservations expired, %d unclaimed cancelled in %v",
		stats.MarkedOverdue, stats.RefreshedFines, stats.ExpiredReservations, stats.CancelledUnclaimed,
		time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// sweepOverdue marks late borrows overdue with their accrued fine, then
// refreshes the fine on records already overdue. An overdue borrow keeps
// its copy claimed until it is returned or cancelled.
func (s *Sweeper) sweepOverdue(now time.Time) (marked, refreshed int, err error) {
	due, err := s.borrows.DueForOverdue(now)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range due {
		rec := rec
		txErr := s.db.Transaction(func(tx *gorm.DB) error {
			b := s.borrows.WithTx(tx)
			m := s.materials.WithTx(tx)

			moved, err := b.Transition(rec.ID,
				[]entities.BorrowStatus{entities.BorrowPending, entities.BorrowBorrowed},
				map[string]any{
					"status":       entities.BorrowOverdue,
					"days_overdue": circulation.DaysOverdue(now, rec.ReturnDate),
					"amount_due":   circulation.FineAmount(now, rec.ReturnDate, s.config.DailyFineRate),
				})
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			marked++
			return m.SetStatus(rec.MaterialID, entities.MaterialOverdue)
		})
		if txErr != nil {
			log.Printf("Expiry sweeper: failed to mark borrow %d overdue: %v", rec.ID, txErr)
		}
	}

	overdue, err := s.borrows.Overdue()
	if err != nil {
		return marked, 0, err
	}
	for _, rec := range overdue {
		days := circulation.DaysOverdue(now, rec.ReturnDate)
		amount := circulation.FineAmount(now, rec.ReturnDate, s.config.DailyFineRate)
		if days == rec.DaysOverdue && amount == rec.AmountDue {
			continue
		}
		updated, err := s.borrows.UpdateFine(rec.ID, days, amount)
		if err != nil {
			log.Printf("Expiry sweeper: failed to refresh fine on borrow %d: %v", rec.ID, err)
			continue
		}
		if updated {
			refreshed++
		}
	}
	return marked, refreshed, nil
}

// sweepExpiredReservations expires reservations past their pickup date and
// releases their copies, exactly once each.
func (s *Sweeper) sweepExpiredReservations(now time.Time) (int, error) {
	recs, err := s.reserves.ExpiredBefore(now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, rec := range recs {
		rec := rec
		var moved bool
		txErr := s.db.Transaction(func(tx *gorm.DB) error {
			rr := s.reserves.WithTx(tx)
			m := s.materials.WithTx(tx)

			var err error
			moved, err = rr.Transition(rec.ID,
				[]entities.ReserveStatus{entities.ReservePending, entities.ReserveApproved},
				map[string]any{"status": entities.ReserveExpired})
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			return m.IncrementAvailable(rec.MaterialID)
		})
		if txErr != nil {
			log.Printf("Expiry sweeper: failed to expire reservation %d: %v", rec.ID, txErr)
			continue
		}
		if moved {
			expired++
			if s.notifier != nil {
				s.notifier.ReservationExpired(rec.UserID, s.materialLabel(rec.MaterialID), rec.ID)
			}
		}
	}
	return expired, nil
}

// sweepUnclaimed cancels pending borrow requests that sat unclaimed past
// the grace period and releases their copies.
func (s *Sweeper) sweepUnclaimed(now time.Time) (int, error) {
	cutoff := now.Add(-s.config.UnclaimedGrace)
	recs, err := s.borrows.UnclaimedBefore(cutoff)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, rec := range recs {
		rec := rec
		txErr := s.db.Transaction(func(tx *gorm.DB) error {
			b := s.borrows.WithTx(tx)
			m := s.materials.WithTx(tx)

			moved, err := b.Transition(rec.ID,
				[]entities.BorrowStatus{entities.BorrowPending},
				map[string]any{
					"status":       entities.BorrowCancelled,
					"cancelled_at": now,
				})
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			cancelled++
			return m.IncrementAvailable(rec.MaterialID)
		})
		if txErr != nil {
			log.Printf("Expiry sweeper: failed to cancel unclaimed borrow %d: %v", rec.ID, txErr)
		}
	}
	return cancelled, nil
}

func (s *Sweeper) materialLabel(id uint) string {
	m, err := s.materials.GetByID(id)
	if err != nil {
		return "this material"
	}
	return materials.Describe(m)
}
