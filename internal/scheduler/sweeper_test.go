package scheduler

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

// claimedMaterial creates a material whose single copy is already held by a
// record the test is about to create.
func claimedMaterial(t *testing.T, db *gorm.DB, accession string) *entities.Material {
	t.Helper()
	m := &entities.Material{
		AccessionNumber: accession,
		Name:            "Operating Systems",
		Kind:            "book",
		TotalCopies:     1,
		AvailableCopies: 0,
		Status:          entities.MaterialBorrowed,
	}
	require.NoError(t, db.Create(m).Error)
	// gorm omits zero-valued fields on Create, so the column default of 1
	// would override AvailableCopies: 0; force the intended value.
	require.NoError(t, db.Model(m).UpdateColumn("available_copies", 0).Error)
	return m
}

func materialByID(t *testing.T, db *gorm.DB, id uint) *entities.Material {
	t.Helper()
	var m entities.Material
	require.NoError(t, db.First(&m, id).Error)
	return &m
}

func newTestSweeper(t *testing.T, db *gorm.DB, now time.Time) *Sweeper {
	s := NewSweeper(SweeperConfig{
		DB:             db,
		DailyFineRate:  5,
		UnclaimedGrace: 24 * time.Hour,
	})
	s.SetClock(func() time.Time { return now })
	return s
}

func TestSweeper_MarksOverdue(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	m := claimedMaterial(t, db, "ACC-001")

	rec := &entities.BorrowRecord{
		MaterialID: m.ID,
		UserID:     1,
		BorrowDate: now.Add(-5 * 24 * time.Hour),
		ReturnDate: now.Add(-2 * 24 * time.Hour),
		Status:     entities.BorrowBorrowed,
	}
	require.NoError(t, db.Create(rec).Error)

	s := newTestSweeper(t, db, now)
	stats, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MarkedOverdue)

	var got entities.BorrowRecord
	require.NoError(t, db.First(&got, rec.ID).Error)
	assert.Equal(t, entities.BorrowOverdue, got.Status)
	assert.Equal(t, 2, got.DaysOverdue)
	assert.Equal(t, 10.0, got.AmountDue)

	mat := materialByID(t, db, m.ID)
	assert.Equal(t, entities.MaterialOverdue, mat.Status)
	assert.Equal(t, 0, mat.AvailableCopies, "overdue does not release the copy")

	t.Run("second run changes nothing", func(t *testing.T) {
		stats, err := s.Run()
		require.NoError(t, err)
		assert.Zero(t, stats.MarkedOverdue)
		assert.Zero(t, stats.RefreshedFines)
	})

	t.Run("fine grows with the clock", func(t *testing.T) {
		later := newTestSweeper(t, db, now.Add(24*time.Hour))
		stats, err := later.Run()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.RefreshedFines)

		var got entities.BorrowRecord
		require.NoError(t, db.First(&got, rec.ID).Error)
		assert.Equal(t, 3, got.DaysOverdue)
		assert.Equal(t, 15.0, got.AmountDue)
	})
}

func TestSweeper_ExpiresReservations(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	m := claimedMaterial(t, db, "ACC-001")

	rec := &entities.ReserveRecord{
		MaterialID:      m.ID,
		UserID:          1,
		ReservationDate: now.Add(-4 * 24 * time.Hour),
		PickupDate:      now.Add(-24 * time.Hour),
		Status:          entities.ReserveApproved,
	}
	require.NoError(t, db.Create(rec).Error)

	s := newTestSweeper(t, db, now)
	stats, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ExpiredReservations)

	var got entities.ReserveRecord
	require.NoError(t, db.First(&got, rec.ID).Error)
	assert.Equal(t, entities.ReserveExpired, got.Status)

	mat := materialByID(t, db, m.ID)
	assert.Equal(t, 1, mat.AvailableCopies)
	assert.Equal(t, entities.MaterialAvailable, mat.Status)

	t.Run("release happens exactly once", func(t *testing.T) {
		stats, err := s.Run()
		require.NoError(t, err)
		assert.Zero(t, stats.ExpiredReservations)
		assert.Equal(t, 1, materialByID(t, db, m.ID).AvailableCopies)
	})
}

func TestSweeper_CancelsUnclaimed(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	m := claimedMaterial(t, db, "ACC-001")

	stale := &entities.BorrowRecord{
		MaterialID: m.ID,
		UserID:     1,
		BorrowDate: now.Add(-48 * time.Hour),
		ReturnDate: now.Add(5 * 24 * time.Hour),
		Status:     entities.BorrowPending,
	}
	require.NoError(t, db.Create(stale).Error)

	fresh := &entities.BorrowRecord{
		MaterialID: m.ID,
		UserID:     2,
		BorrowDate: now.Add(-time.Hour),
		ReturnDate: now.Add(5 * 24 * time.Hour),
		Status:     entities.BorrowPending,
	}
	require.NoError(t, db.Create(fresh).Error)

	s := newTestSweeper(t, db, now)
	stats, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CancelledUnclaimed)

	var got entities.BorrowRecord
	require.NoError(t, db.First(&got, stale.ID).Error)
	assert.Equal(t, entities.BorrowCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)

	// Reset: a reused struct's primary key would be added to the query.
	got = entities.BorrowRecord{}
	require.NoError(t, db.First(&got, fresh.ID).Error)
	assert.Equal(t, entities.BorrowPending, got.Status, "records inside the grace period stay")

	assert.Equal(t, 1, materialByID(t, db, m.ID).AvailableCopies)
}
