// Package entrypoint wires the application together and runs it.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/activitylog"
	"github.com/mfajardo/libcirc/internal/auth"
	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/config"
	"github.com/mfajardo/libcirc/internal/database"
	"github.com/mfajardo/libcirc/internal/database/activities"
	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/notifications"
	"github.com/mfajardo/libcirc/internal/database/ratings"
	"github.com/mfajardo/libcirc/internal/database/reserves"
	"github.com/mfajardo/libcirc/internal/entities"
	http_controllers "github.com/mfajardo/libcirc/internal/http"
	"github.com/mfajardo/libcirc/internal/notify"
	"github.com/mfajardo/libcirc/internal/scheduler"
	"github.com/mfajardo/libcirc/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until an interrupt, then shuts down gracefully.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background workers before the listener so in-flight jobs finish.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run builds every component from config and serves the API.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting libcirc v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if err := seedAdmin(db, cfg); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// Repositories
	materialsRepo := materials.NewRepository(db.DB)
	borrowsRepo := borrows.NewRepository(db.DB)
	reservesRepo := reserves.NewRepository(db.DB)
	ratingsRepo := ratings.NewRepository(db.DB)
	notificationsRepo := notifications.NewRepository(db.DB)
	activitiesRepo := activities.NewRepository(db.DB)

	// Collaborator services
	notifyService := notify.NewService(notificationsRepo)
	activityService := activitylog.NewService(activitiesRepo)

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCreateNotificationQueue(notificationsRepo),
			tasks.NewCleanupNotificationsQueue(notificationsRepo),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		notifyService.SetQueue(taskClient)
	}

	// Lifecycle coordinator
	coordinator := circulation.NewCoordinator(db.DB, circulation.Policy{
		DailyFineRate: cfg.Circulation.DailyFineRate,
		LoanPeriod:    cfg.Circulation.LoanPeriod,
		PickupWindow:  cfg.Circulation.PickupWindow,
	})
	coordinator.SetNotifier(notifyService)
	coordinator.SetActivityRecorder(activityService)

	// Background jobs
	sweeper := scheduler.NewSweeper(scheduler.SweeperConfig{
		DB:             db.DB,
		Schedule:       cfg.Sweeper.Schedule,
		DailyFineRate:  cfg.Circulation.DailyFineRate,
		UnclaimedGrace: cfg.Circulation.UnclaimedGrace,
	})
	sweeper.SetNotifier(notifyService)
	if taskClient != nil {
		sweeper.SetTaskQueue(taskClient)
	}

	reconciler := scheduler.NewReconciler(scheduler.ReconcilerConfig{
		DB:       db.DB,
		Schedule: cfg.Reconciler.Schedule,
	})

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	if cfg.Sweeper.Enabled {
		if err := sweeper.Start(jobCtx); err != nil {
			log.Fatalf("Failed to start expiry sweeper: %v", err)
		}
	}
	if cfg.Reconciler.Enabled {
		if err := reconciler.Start(jobCtx); err != nil {
			log.Fatalf("Failed to start inventory reconciler: %v", err)
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:      db,
		Coordinator:   coordinator,
		Materials:     materialsRepo,
		Borrows:       borrowsRepo,
		Reserves:      reservesRepo,
		Ratings:       ratingsRepo,
		Notifications: notificationsRepo,
		Activities:    activitiesRepo,
		Sweeper:       sweeper,
		Activity:      activityService,
		Version:       version,
	})

	Serve(router, cfg, func(ctx context.Context) {
		sweeper.Stop()
		reconciler.Stop()
		if taskClient != nil {
			if taskCtxCancel != nil {
				taskCtxCancel()
			}
			taskClient.Stop(ctx)
		}
	})
}

// Sweep runs one expiry sweep and exits. Used by the sweep command.
func Sweep(cfg *config.Config) error {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	notifyService := notify.NewService(notifications.NewRepository(db.DB))
	sweeper := scheduler.NewSweeper(scheduler.SweeperConfig{
		DB:             db.DB,
		DailyFineRate:  cfg.Circulation.DailyFineRate,
		UnclaimedGrace: cfg.Circulation.UnclaimedGrace,
	})
	sweeper.SetNotifier(notifyService)

	stats, err := sweeper.Run()
	if err != nil {
		return err
	}

	activityService := activitylog.NewService(activities.NewRepository(db.DB))
	return activityService.RecordSync(0, entities.ActionSweepRun,
		fmt.Sprintf("%d marked overdue, %d fines refreshed, %d reservations expired, %d unclaimed cancelled",
			stats.MarkedOverdue, stats.RefreshedFines, stats.ExpiredReservations, stats.CancelledUnclaimed))
}

// Reconcile runs one inventory reconciliation pass and exits. Used by the
// reconcile command.
func Reconcile(cfg *config.Config) error {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	reconciler := scheduler.NewReconciler(scheduler.ReconcilerConfig{DB: db.DB})
	updated, err := reconciler.Run()
	if err != nil {
		return err
	}

	activityService := activitylog.NewService(activities.NewRepository(db.DB))
	return activityService.RecordSync(0, entities.ActionReconcileRun,
		fmt.Sprintf("%d material statuses repaired", updated))
}

// seedAdmin creates the initial admin account when the user table is empty
// and a password is configured.
func seedAdmin(db *database.Database, cfg *config.Config) error {
	hasUsers, err := db.HasUsers()
	if err != nil {
		return err
	}
	if hasUsers {
		return nil
	}
	if cfg.Admin.Password == "" {
		log.Printf("No users found and ADMIN_PASSWORD not set; skipping admin seeding")
		return nil
	}

	hash, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		return err
	}
	admin := &entities.User{
		Name:         "Administrator",
		Email:        cfg.Admin.Email,
		Role:         entities.RoleAdmin,
		PasswordHash: hash,
		Token:        auth.GenerateToken(),
	}
	if err := db.CreateUser(admin); err != nil {
		return err
	}
	log.Printf("Seeded admin account %s (token: %s)", admin.Email, admin.Token)
	return nil
}
