package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfajardo/libcirc/internal/auth"
	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database"
	"github.com/mfajardo/libcirc/internal/database/activities"
	"github.com/mfajardo/libcirc/internal/database/borrows"
	"github.com/mfajardo/libcirc/internal/database/materials"
	"github.com/mfajardo/libcirc/internal/database/notifications"
	"github.com/mfajardo/libcirc/internal/database/ratings"
	"github.com/mfajardo/libcirc/internal/database/reserves"
	"github.com/mfajardo/libcirc/internal/entities"
	"github.com/mfajardo/libcirc/internal/scheduler"
)

type testEnv struct {
	router    *gin.Engine
	db        *database.Database
	materials *materials.Repository
	patron    *entities.User
	admin     *entities.User
}

func setupEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	patron := &entities.User{Name: "Pat", Email: "pat@example.com", Role: entities.RolePatron, Token: auth.GenerateToken()}
	require.NoError(t, db.CreateUser(patron))
	admin := &entities.User{Name: "Adele", Email: "adele@example.com", Role: entities.RoleAdmin, Token: auth.GenerateToken()}
	require.NoError(t, db.CreateUser(admin))

	coordinator := circulation.NewCoordinator(db.DB, circulation.Policy{
		DailyFineRate: 5,
		LoanPeriod:    7 * 24 * time.Hour,
		PickupWindow:  3 * 24 * time.Hour,
	})
	sweeper := scheduler.NewSweeper(scheduler.SweeperConfig{
		DB:             db.DB,
		DailyFineRate:  5,
		UnclaimedGrace: 24 * time.Hour,
	})

	router := NewRouter(RouterConfig{
		Database:      db,
		Coordinator:   coordinator,
		Materials:     materials.NewRepository(db.DB),
		Borrows:       borrows.NewRepository(db.DB),
		Reserves:      reserves.NewRepository(db.DB),
		Ratings:       ratings.NewRepository(db.DB),
		Notifications: notifications.NewRepository(db.DB),
		Activities:    activities.NewRepository(db.DB),
		Sweeper:       sweeper,
		Version:       "test",
	})

	return &testEnv{
		router:    router,
		db:        db,
		materials: materials.NewRepository(db.DB),
		patron:    patron,
		admin:     admin,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createMaterial(t *testing.T, copies int) *entities.Material {
	t.Helper()
	m := &entities.Material{
		AccessionNumber: uuid.NewString(),
		Name:            "Distributed Systems",
		Kind:            "book",
		TotalCopies:     copies,
	}
	require.NoError(t, e.materials.Create(m))
	return m
}

func TestHealthIsPublic(t *testing.T) {
	env := setupEnv(t)
	w := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status"`)
}

func TestAPIRequiresToken(t *testing.T) {
	env := setupEnv(t)
	w := env.request(t, http.MethodGet, "/api/materials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectPatrons(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/api/borrow-requests", env.patron.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPost, "/api/materials", env.patron.Token, gin.H{
		"accession_number": "ACC-X", "name": "X", "kind": "book",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBorrowLifecycle(t *testing.T) {
	env := setupEnv(t)
	m := env.createMaterial(t, 1)

	// File the request.
	w := env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{
		"material_id": m.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec entities.BorrowRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, entities.BorrowPending, rec.Status)

	// The copy is claimed: a second request conflicts.
	w = env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{
		"material_id": m.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// It shows up in my-requests.
	w = env.request(t, http.MethodGet, "/api/borrow-requests/my-requests", env.patron.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	// Admin approves the pickup.
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/borrow-requests/%d/status", rec.ID),
		env.admin.Token, gin.H{"status": "borrowed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Patron returns it.
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/borrow-requests/%d/return", rec.ID),
		env.patron.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"returned"`)

	// Returning again is a conflict.
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/borrow-requests/%d/return", rec.ID),
		env.patron.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBorrowValidation(t *testing.T) {
	env := setupEnv(t)
	m := env.createMaterial(t, 1)

	t.Run("missing material_id", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown material", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{
			"material_id": 99999,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed idempotency key", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{
			"material_id":     m.ID,
			"idempotency_key": "not-a-uuid",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown admin status", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{
			"material_id": m.ID,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var rec entities.BorrowRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))

		w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/borrow-requests/%d/status", rec.ID),
			env.admin.Token, gin.H{"status": "vanished"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReservationPickupWindow(t *testing.T) {
	env := setupEnv(t)
	m := env.createMaterial(t, 1)

	w := env.request(t, http.MethodPost, "/api/reserve-requests", env.patron.Token, gin.H{
		"material_id": m.ID,
		"pickup_date": time.Now().Add(5 * 24 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/reserve-requests", env.patron.Token, gin.H{
		"material_id": m.ID,
		"pickup_date": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRatingFlow(t *testing.T) {
	env := setupEnv(t)
	m := env.createMaterial(t, 1)

	w := env.request(t, http.MethodPost, "/api/borrow-requests", env.patron.Token, gin.H{
		"material_id": m.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var rec entities.BorrowRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))

	ratePath := fmt.Sprintf("/api/materials/%d/rating", m.ID)

	t.Run("active borrow cannot be rated", func(t *testing.T) {
		w := env.request(t, http.MethodPost, ratePath, env.patron.Token, gin.H{
			"borrow_id": rec.ID, "stars": 4,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/borrow-requests/%d/return", rec.ID),
		env.patron.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("returned borrow is rated once", func(t *testing.T) {
		w := env.request(t, http.MethodPost, ratePath, env.patron.Token, gin.H{
			"borrow_id": rec.ID, "stars": 4, "review": "useful",
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.request(t, http.MethodPost, ratePath, env.patron.Token, gin.H{
			"borrow_id": rec.ID, "stars": 1,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("ratings list includes the review", func(t *testing.T) {
		w := env.request(t, http.MethodGet, fmt.Sprintf("/api/materials/%d/ratings", m.ID),
			env.patron.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)
	})
}

func TestCheckOverdueRunsSweep(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/api/borrow-requests/check-overdue", env.admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"marked_overdue"`)
}

func TestNotificationEndpoints(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/api/notifications", env.patron.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = env.request(t, http.MethodPatch, "/api/notifications/12345/read", env.patron.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
