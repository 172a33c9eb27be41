package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/database/materials"
)

// ReconcilerConfig configures the inventory reconciler.
type ReconcilerConfig struct {
	DB       *gorm.DB
	Schedule string // cron expression, every six hours by default
}

// Reconciler periodically recomputes each material's display status from
// its live borrow and reserve records. It repairs drift left by crashes or
// direct admin writes; it never touches copy counts, which only move on
// record transitions.
type Reconciler struct {
	db        *gorm.DB
	materials *materials.Repository
	config    ReconcilerConfig

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReconciler creates a new reconciler instance.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 */6 * * *"
	}
	return &Reconciler{
		db:        cfg.DB,
		materials: materials.NewRepository(cfg.DB),
		config:    cfg,
		cron:      cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the periodic schedule.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return nil
	}

	entryID, err := r.cron.AddFunc(r.config.Schedule, func() {
		if _, err := r.Run(); err != nil {
			log.Printf("Inventory reconciler: run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciler job: %w", err)
	}
	r.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, r.cancelFunc = context.WithCancel(ctx)

	r.cron.Start()
	r.isRunning = true
	log.Printf("Inventory reconciler: started with schedule '%s'", r.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		r.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running pass.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	ctx := r.cron.Stop()
	<-ctx.Done()

	r.isRunning = false
	r.cancelFunc = nil
	log.Printf("Inventory reconciler: stopped")
}

// RunNow triggers an immediate pass off the caller's goroutine.
func (r *Reconciler) RunNow() {
	go func() {
		if _, err := r.Run(); err != nil {
			log.Printf("Inventory reconciler: run failed: %v", err)
		}
	}()
}

// IsRunning returns whether the scheduler is active.
func (r *Reconciler) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRunning
}

// Run recomputes the status of every material and returns how many were
// updated. Per-material failures are logged and skipped.
func (r *Reconciler) Run() (int, error) {
	start := time.Now()
	ids, err := r.materials.AllIDs()
	if err != nil {
		return 0, fmt.Errorf("list materials: %w", err)
	}

	updated := 0
	for _, id := range ids {
		id := id
		txErr := r.db.Transaction(func(tx *gorm.DB) error {
			return r.materials.WithTx(tx).RecomputeStatus(id)
		})
		if txErr != nil {
			log.Printf("Inventory reconciler: failed to reconcile material %d: %v", id, txErr)
			continue
		}
		updated++
	}

	log.Printf("Inventory reconciler: reconciled %d of %d materials in %v",
		updated, len(ids), time.Since(start).Round(time.Millisecond))
	return updated, nil
}
