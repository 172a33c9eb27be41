package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/auth"
	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database"
	"github.com/mfajardo/libcirc/internal/database/activities"
	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/notifications"
	"github.com/mfajardo/libcirc/internal/database/ratings"
	"github.com/mfajardo/libcirc/internal/database/reserves"
)

// RouterConfig carries all dependencies for NewRouter.
type RouterConfig struct {
	Database    *database.Database
	Coordinator *circulation.Coordinator

	Materials     *materials.Repository
	Borrows       *borrows.Repository
	Reserves      *reserves.Repository
	Ratings       *ratings.Repository
	Notifications *notifications.Repository
	Activities    *activities.Repository

	Sweeper  SweepRunner
	Activity circulation.ActivityRecorder
	Version  string
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Everything under /api requires a bearer token; admin routes additionally
// require the admin role.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	borrowController := NewBorrowController(cfg.Coordinator, cfg.Borrows, cfg.Sweeper)
	reserveController := NewReserveController(cfg.Coordinator, cfg.Reserves)
	materialsController := NewMaterialsController(cfg.Coordinator, cfg.Materials, cfg.Borrows, cfg.Ratings, cfg.Activity)
	notificationsController := NewNotificationsController(cfg.Notifications)
	activityController := NewActivityController(cfg.Activities)

	router.GET("/health", health.Status)

	api := router.Group("/api", auth.RequireAuth(cfg.Database))
	admin := api.Group("", auth.RequireAdmin())

	// Borrow requests
	api.POST("/borrow-requests", borrowController.Create)
	api.GET("/borrow-requests/my-requests", borrowController.ListMine)
	api.PATCH("/borrow-requests/:id/return", borrowController.Return)
	api.PATCH("/borrow-requests/:id/cancel", borrowController.Cancel)
	admin.GET("/borrow-requests", borrowController.ListAll)
	admin.POST("/borrow-requests/direct", borrowController.AdminCreate)
	admin.PATCH("/borrow-requests/:id/status", borrowController.SetStatus)
	admin.GET("/borrow-requests/check-overdue", borrowController.CheckOverdue)

	// Reservations
	api.POST("/reserve-requests", reserveController.Create)
	api.GET("/reserve-requests/my-requests", reserveController.ListMine)
	api.PATCH("/reserve-requests/:id/cancel", reserveController.Cancel)
	admin.GET("/reserve-requests", reserveController.ListAll)
	admin.PATCH("/reserve-requests/:id/status", reserveController.SetStatus)

	// Catalog
	api.GET("/materials", materialsController.List)
	api.GET("/materials/:id", materialsController.Get)
	api.POST("/materials/:id/rating", materialsController.Rate)
	api.GET("/materials/:id/ratings", materialsController.ListRatings)
	admin.POST("/materials", materialsController.Create)
	admin.PATCH("/materials/:id", materialsController.Update)
	admin.DELETE("/materials/:id", materialsController.Delete)
	admin.PATCH("/materials/:id/status", materialsController.SetStatus)

	// Notifications
	api.GET("/notifications", notificationsController.List)
	api.GET("/notifications/unread-count", notificationsController.UnreadCount)
	api.PATCH("/notifications/:id/read", notificationsController.MarkRead)

	// Activity log
	admin.GET("/activity", activityController.ListRecent)

	return router
}
