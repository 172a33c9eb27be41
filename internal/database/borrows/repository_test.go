package borrows

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

	err = db.AutoMigrate(&entities.Material{}, &entities.BorrowRecord{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&entities.Material{
		AccessionNumber: "ACC-001",
		Name:            "The Practice of Programming",
		Kind:            "book",
		TotalCopies:     5,
		AvailableCopies: 5,
		Status:          entities.MaterialAvailable,
	}).Error)
	return db
}

func newRecord(t *testing.T, repo *Repository, status entities.BorrowStatus, due time.Time) *entities.BorrowRecord {
	t.Helper()
	rec := &entities.BorrowRecord{
		MaterialID: 1,
		UserID:     1,
		BorrowDate: time.Now(),
		ReturnDate: due,
		Status:     status,
	}
	require.NoError(t, repo.Create(rec))
	return rec
}

func TestRepository_Transition(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	rec := newRecord(t, repo, entities.BorrowPending, time.Now().Add(72*time.Hour))

	t.Run("moves from a matching status", func(t *testing.T) {
		moved, err := repo.Transition(rec.ID,
			[]entities.BorrowStatus{entities.BorrowPending},
			map[string]any{"status": entities.BorrowBorrowed})
		require.NoError(t, err)
		assert.True(t, moved)

		got, err := repo.GetByID(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.BorrowBorrowed, got.Status)
	})

	t.Run("does not move from a non-matching status", func(t *testing.T) {
		moved, err := repo.Transition(rec.ID,
			[]entities.BorrowStatus{entities.BorrowPending},
			map[string]any{"status": entities.BorrowCancelled})
		require.NoError(t, err)
		assert.False(t, moved, "the guard must reject a second claim")
	})
}

func TestRepository_GetByIdempotencyKey(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	key := "2f0a7f0e-7d47-4e55-9d5a-4f3f1c7a1b2c"
	rec := &entities.BorrowRecord{
		MaterialID:     1,
		UserID:         1,
		BorrowDate:     time.Now(),
		ReturnDate:     time.Now().Add(72 * time.Hour),
		Status:         entities.BorrowPending,
		IdempotencyKey: &key,
	}
	require.NoError(t, repo.Create(rec))

	got, err := repo.GetByIdempotencyKey(key)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = repo.GetByIdempotencyKey("unknown-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UpdateFine(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now()

	t.Run("refreshes an overdue record", func(t *testing.T) {
		rec := newRecord(t, repo, entities.BorrowOverdue, now.Add(-48*time.Hour))

		updated, err := repo.UpdateFine(rec.ID, 2, 10)
		require.NoError(t, err)
		assert.True(t, updated)

		got, err := repo.GetByID(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.DaysOverdue)
		assert.Equal(t, 10.0, got.AmountDue)
	})

	t.Run("skips a record returned since it was read", func(t *testing.T) {
		rec := newRecord(t, repo, entities.BorrowOverdue, now.Add(-48*time.Hour))

		// The return lands after the sweep read the record but before it
		// writes the refreshed figures.
		moved, err := repo.Transition(rec.ID,
			[]entities.BorrowStatus{entities.BorrowOverdue},
			map[string]any{
				"status":       entities.BorrowReturned,
				"days_overdue": 0,
				"amount_due":   0,
			})
		require.NoError(t, err)
		require.True(t, moved)

		updated, err := repo.UpdateFine(rec.ID, 4, 20)
		require.NoError(t, err)
		assert.False(t, updated)

		got, err := repo.GetByID(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.BorrowReturned, got.Status)
		assert.Zero(t, got.DaysOverdue, "a settled record keeps its cleared figures")
		assert.Zero(t, got.AmountDue)
	})
}

func TestRepository_DueForOverdue(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now()

	late := newRecord(t, repo, entities.BorrowBorrowed, now.Add(-time.Hour))
	newRecord(t, repo, entities.BorrowBorrowed, now.Add(time.Hour))        // not due yet
	newRecord(t, repo, entities.BorrowReturned, now.Add(-48*time.Hour))    // terminal
	latePending := newRecord(t, repo, entities.BorrowPending, now.Add(-time.Hour))

	recs, err := repo.DueForOverdue(now)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	ids := []uint{recs[0].ID, recs[1].ID}
	assert.Contains(t, ids, late.ID)
	assert.Contains(t, ids, latePending.ID)
}

func TestRepository_UnclaimedBefore(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now()

	stale := &entities.BorrowRecord{
		MaterialID: 1,
		UserID:     1,
		BorrowDate: now.Add(-48 * time.Hour),
		ReturnDate: now.Add(72 * time.Hour),
		Status:     entities.BorrowPending,
	}
	require.NoError(t, repo.Create(stale))
	newRecord(t, repo, entities.BorrowPending, now.Add(72*time.Hour)) // fresh

	recs, err := repo.UnclaimedBefore(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, stale.ID, recs[0].ID)
}
