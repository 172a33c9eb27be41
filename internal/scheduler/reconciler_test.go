package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mfajardo/libcirc/internal/entities"
)

func addBorrow(t *testing.T, db *gorm.DB, materialID uint, status entities.BorrowStatus) {
	t.Helper()
	require.NoError(t, db.Create(&entities.BorrowRecord{
		MaterialID: materialID,
		UserID:     1,
		BorrowDate: time.Now(),
		ReturnDate: time.Now().Add(72 * time.Hour),
		Status:     status,
	}).Error)
}

func TestReconciler_RepairsDriftedStatuses(t *testing.T) {
	db := setupTestDB(t)

	// Status drifted to available even though a copy is out.
	drifted := &entities.Material{
		AccessionNumber: "ACC-001",
		Name:            "Compilers",
		Kind:            "book",
		TotalCopies:     1,
		AvailableCopies: 0,
		Status:          entities.MaterialAvailable,
	}
	require.NoError(t, db.Create(drifted).Error)
	// gorm omits zero-valued fields on Create, so the column default of 1
	// would override AvailableCopies: 0; force the intended value.
	require.NoError(t, db.Model(drifted).UpdateColumn("available_copies", 0).Error)
	addBorrow(t, db, drifted.ID, entities.BorrowBorrowed)

	// Terminal records only: should read available again.
	settled := &entities.Material{
		AccessionNumber: "ACC-002",
		Name:            "Databases",
		Kind:            "book",
		TotalCopies:     1,
		AvailableCopies: 1,
		Status:          entities.MaterialBorrowed,
	}
	require.NoError(t, db.Create(settled).Error)
	addBorrow(t, db, settled.ID, entities.BorrowReturned)

	// Pending borrow outranks an active reservation.
	mixed := &entities.Material{
		AccessionNumber: "ACC-003",
		Name:            "Networks",
		Kind:            "book",
		TotalCopies:     2,
		AvailableCopies: 0,
		Status:          entities.MaterialAvailable,
	}
	require.NoError(t, db.Create(mixed).Error)
	require.NoError(t, db.Model(mixed).UpdateColumn("available_copies", 0).Error)
	addBorrow(t, db, mixed.ID, entities.BorrowPending)
	require.NoError(t, db.Create(&entities.ReserveRecord{
		MaterialID:      mixed.ID,
		UserID:          1,
		ReservationDate: time.Now(),
		PickupDate:      time.Now().Add(24 * time.Hour),
		Status:          entities.ReserveApproved,
	}).Error)

	r := NewReconciler(ReconcilerConfig{DB: db})
	updated, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	assert.Equal(t, entities.MaterialBorrowed, materialByID(t, db, drifted.ID).Status)
	assert.Equal(t, entities.MaterialAvailable, materialByID(t, db, settled.ID).Status)
	assert.Equal(t, entities.MaterialPending, materialByID(t, db, mixed.ID).Status)

	t.Run("copy counts are never touched", func(t *testing.T) {
		assert.Equal(t, 0, materialByID(t, db, drifted.ID).AvailableCopies)
		assert.Equal(t, 1, materialByID(t, db, settled.ID).AvailableCopies)
		assert.Equal(t, 0, materialByID(t, db, mixed.ID).AvailableCopies)
	})
}
