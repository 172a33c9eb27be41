package materials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mfajardo/libcirc/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Material{},
		&entities.BorrowRecord{},
		&entities.ReserveRecord{},
	)
	require.NoError(t, err)
	return db
}

func newMaterial(t *testing.T, repo *Repository, accession string, copies int) *entities.Material {
	t.Helper()
	m := &entities.Material{
		AccessionNumber: accession,
		Name:            "Structure and Interpretation",
		Kind:            "book",
		TotalCopies:     copies,
	}
	require.NoError(t, repo.Create(m))
	return m
}

func TestRepository_Create(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	m := newMaterial(t, repo, "ACC-001", 3)
	assert.Equal(t, 3, m.AvailableCopies)
	assert.Equal(t, entities.MaterialAvailable, m.Status)
}

func TestRepository_DecrementAvailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	m := newMaterial(t, repo, "ACC-001", 2)

	require.NoError(t, repo.DecrementAvailable(m.ID))
	got, err := repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
	assert.Equal(t, entities.MaterialAvailable, got.Status)

	// Claiming the last copy flips the status.
	require.NoError(t, repo.DecrementAvailable(m.ID))
	got, err = repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
	assert.Equal(t, entities.MaterialBorrowed, got.Status)

	// Nothing left to claim.
	assert.ErrorIs(t, repo.DecrementAvailable(m.ID), ErrOutOfStock)
	assert.ErrorIs(t, repo.DecrementAvailable(99999), ErrNotFound)
}

func TestRepository_IncrementAvailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	m := newMaterial(t, repo, "ACC-001", 1)

	require.NoError(t, repo.DecrementAvailable(m.ID))
	require.NoError(t, repo.IncrementAvailable(m.ID))

	got, err := repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
	assert.Equal(t, entities.MaterialAvailable, got.Status)

	// Capped at the total: a second release changes nothing.
	require.NoError(t, repo.IncrementAvailable(m.ID))
	got, err = repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
}

func TestRepository_UpdateFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	m := newMaterial(t, repo, "ACC-001", 2)

	err := repo.UpdateFields(m.ID, map[string]any{
		"name":             "Renamed",
		"available_copies": 100,
		"status":           "cancelled",
	})
	require.NoError(t, err)

	got, err := repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 2, got.AvailableCopies, "ledger fields must not be writable through partial updates")
	assert.Equal(t, entities.MaterialAvailable, got.Status)

	assert.ErrorIs(t, repo.UpdateFields(99999, map[string]any{"name": "x"}), ErrNotFound)
}

func TestRepository_ComputeStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	m := newMaterial(t, repo, "ACC-001", 3)
	now := time.Now()

	addBorrow := func(status entities.BorrowStatus) {
		require.NoError(t, db.Create(&entities.BorrowRecord{
			MaterialID: m.ID,
			UserID:     1,
			BorrowDate: now,
			ReturnDate: now.Add(72 * time.Hour),
			Status:     status,
		}).Error)
	}
	addReserve := func(status entities.ReserveStatus) {
		require.NoError(t, db.Create(&entities.ReserveRecord{
			MaterialID:      m.ID,
			UserID:          1,
			ReservationDate: now,
			PickupDate:      now.Add(24 * time.Hour),
			Status:          status,
		}).Error)
	}

	t.Run("no records means available", func(t *testing.T) {
		status, err := repo.ComputeStatus(m.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.MaterialAvailable, status)
	})

	t.Run("terminal records do not count", func(t *testing.T) {
		addBorrow(entities.BorrowReturned)
		addReserve(entities.ReserveExpired)
		status, err := repo.ComputeStatus(m.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.MaterialAvailable, status)
	})

	t.Run("active reservation wins over nothing", func(t *testing.T) {
		addReserve(entities.ReserveApproved)
		status, err := repo.ComputeStatus(m.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.MaterialReserved, status)
	})

	t.Run("pending borrow wins over reservation", func(t *testing.T) {
		addBorrow(entities.BorrowPending)
		status, err := repo.ComputeStatus(m.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.MaterialPending, status)
	})

	t.Run("borrowed wins over everything", func(t *testing.T) {
		addBorrow(entities.BorrowBorrowed)
		status, err := repo.ComputeStatus(m.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.MaterialBorrowed, status)
	})
}

func TestRepository_AssertAvailableTransitionAllowed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	m := newMaterial(t, repo, "ACC-001", 1)

	assert.NoError(t, repo.AssertAvailableTransitionAllowed(m.ID))

	require.NoError(t, db.Create(&entities.BorrowRecord{
		MaterialID: m.ID,
		UserID:     1,
		BorrowDate: time.Now(),
		ReturnDate: time.Now().Add(72 * time.Hour),
		Status:     entities.BorrowOverdue,
	}).Error)

	assert.ErrorIs(t, repo.AssertAvailableTransitionAllowed(m.ID), ErrActiveTransactionsExist)
}
