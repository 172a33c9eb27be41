package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Circulation
		Sweeper
		Reconciler
		Tasks
		Admin
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Circulation holds the loan policy applied by the lifecycle coordinator.
	Circulation struct {
		DailyFineRate  float64       // fine per day overdue
		LoanPeriod     time.Duration // due period for converted reservations and direct borrows
		PickupWindow   time.Duration // max gap between reservation date and pickup date
		UnclaimedGrace time.Duration // pending borrows older than this are auto-cancelled
	}

	Sweeper struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}

	Reconciler struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	// Admin describes the account seeded when the user table is empty.
	Admin struct {
		Email    string
		Password string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Circulation policy defaults
	v.SetDefault("daily_fine_rate", 5.0)
	v.SetDefault("loan_period", "168h")      // 7 days
	v.SetDefault("pickup_window", "72h")     // 3 days
	v.SetDefault("unclaimed_grace", "24h")   // pending borrows expire after a day

	// Background job defaults
	v.SetDefault("sweeper_enabled", true)
	v.SetDefault("sweeper_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("reconciler_enabled", true)
	v.SetDefault("reconciler_schedule", "0 */6 * * *") // Every 6 hours

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Seed admin defaults (password empty disables seeding)
	v.SetDefault("admin_email", "admin@library.local")
	v.SetDefault("admin_password", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Circulation: Circulation{
			DailyFineRate:  v.GetFloat64("DAILY_FINE_RATE"),
			LoanPeriod:     v.GetDuration("LOAN_PERIOD"),
			PickupWindow:   v.GetDuration("PICKUP_WINDOW"),
			UnclaimedGrace: v.GetDuration("UNCLAIMED_GRACE"),
		},
		Sweeper: Sweeper{
			Enabled:  v.GetBool("SWEEPER_ENABLED"),
			Schedule: v.GetString("SWEEPER_SCHEDULE"),
		},
		Reconciler: Reconciler{
			Enabled:  v.GetBool("RECONCILER_ENABLED"),
			Schedule: v.GetString("RECONCILER_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Admin: Admin{
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}
}
