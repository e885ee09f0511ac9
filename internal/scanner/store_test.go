package scanner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Alexzafra13/echo-sub000/internal/database"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&database.Artist{},
		&database.Album{},
		&database.Track{},
		&database.LibraryScan{},
	)
	require.NoError(t, err)

	return db
}

func createTestScan(t *testing.T, store *StateStore, status string) *database.LibraryScan {
	scan := &database.LibraryScan{
		ID:       uuid.NewString(),
		Status:   status,
		RootPath: "/music",
	}
	require.NoError(t, store.Create(scan))
	return scan
}

func TestSetStatusStampsStartedAtOnce(t *testing.T) {
	store := NewStateStore(setupTestDB(t))
	scan := createTestScan(t, store, database.ScanStatusPending)

	require.NoError(t, store.SetStatus(scan.ID, database.ScanStatusRunning, ""))
	first, err := store.Get(scan.ID)
	require.NoError(t, err)
	require.False(t, first.StartedAt.IsZero())
	assert.Nil(t, first.FinishedAt)

	// Pause and resume keep the original start time.
	require.NoError(t, store.SetStatus(scan.ID, database.ScanStatusPaused, ""))
	require.NoError(t, store.SetStatus(scan.ID, database.ScanStatusRunning, ""))

	resumed, err := store.Get(scan.ID)
	require.NoError(t, err)
	require.False(t, resumed.StartedAt.IsZero())
	assert.Equal(t, first.StartedAt.Unix(), resumed.StartedAt.Unix())
	assert.Nil(t, resumed.FinishedAt)
}

func TestSetStatusStampsFinishedAtOnTerminal(t *testing.T) {
	store := NewStateStore(setupTestDB(t))

	for _, terminal := range []string{
		database.ScanStatusCompleted,
		database.ScanStatusCancelled,
		database.ScanStatusFailed,
	} {
		scan := createTestScan(t, store, database.ScanStatusRunning)
		require.NoError(t, store.SetStatus(scan.ID, terminal, ""))

		got, err := store.Get(scan.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, got.Status)
		assert.NotNil(t, got.FinishedAt, "terminal status %s must stamp FinishedAt", terminal)
		assert.True(t, database.ScanStatusTerminal(got.Status))
	}
}

func TestSetStatusRejectsLeavingTerminalState(t *testing.T) {
	store := NewStateStore(setupTestDB(t))
	scan := createTestScan(t, store, database.ScanStatusPending)

	require.NoError(t, store.SetStatus(scan.ID, database.ScanStatusRunning, ""))
	require.NoError(t, store.SetStatus(scan.ID, database.ScanStatusCompleted, ""))

	// A pause request that loses the race against completion must not
	// rewrite the terminal row.
	err := store.SetStatus(scan.ID, database.ScanStatusPaused, "")
	assert.ErrorIs(t, err, ErrScanNotActive)
	assert.Contains(t, err.Error(), database.ScanStatusCompleted)

	got, err := store.Get(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, database.ScanStatusCompleted, got.Status)
	assert.NotNil(t, got.FinishedAt)
}

func TestSetStatusUnknownScan(t *testing.T) {
	store := NewStateStore(setupTestDB(t))

	err := store.SetStatus(uuid.NewString(), database.ScanStatusRunning, "")
	assert.ErrorIs(t, err, ErrScanNotFound)
}

func TestGetUnknownScan(t *testing.T) {
	store := NewStateStore(setupTestDB(t))

	_, err := store.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrScanNotFound)
}

func TestSetStatusPersistsErrorMessage(t *testing.T) {
	store := NewStateStore(setupTestDB(t))
	scan := createTestScan(t, store, database.ScanStatusRunning)

	require.NoError(t, store.SetStatus(scan.ID, database.ScanStatusFailed, "walk aborted"))

	got, err := store.Get(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, "walk aborted", got.ErrorMessage)
}

func TestSaveCounters(t *testing.T) {
	store := NewStateStore(setupTestDB(t))
	scan := createTestScan(t, store, database.ScanStatusRunning)

	require.NoError(t, store.SaveCounters(scan.ID, 12, 3, 2))

	got, err := store.Get(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.TracksAdded)
	assert.Equal(t, 3, got.TracksUpdated)
	assert.Equal(t, 2, got.TracksDeleted)
}

func TestListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	store := NewStateStore(db)

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		scan := &database.LibraryScan{
			ID:        uuid.NewString(),
			Status:    database.ScanStatusCompleted,
			RootPath:  "/music",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(scan).Error)
		ids = append(ids, scan.ID)
	}

	scans, total, err := store.List(1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, scans, 3)
	assert.Equal(t, ids[4], scans[0].ID)
	assert.Equal(t, ids[3], scans[1].ID)

	second, _, err := store.List(2, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, ids[0], second[1].ID)
}

func TestRecoverInterrupted(t *testing.T) {
	store := NewStateStore(setupTestDB(t))

	createTestScan(t, store, database.ScanStatusPending)
	running := createTestScan(t, store, database.ScanStatusRunning)
	createTestScan(t, store, database.ScanStatusPaused)
	done := createTestScan(t, store, database.ScanStatusCompleted)

	n, err := store.RecoverInterrupted()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := store.Get(running.ID)
	require.NoError(t, err)
	assert.Equal(t, database.ScanStatusFailed, got.Status)
	assert.Equal(t, "interrupted by server restart", got.ErrorMessage)
	assert.NotNil(t, got.FinishedAt)

	untouched, err := store.Get(done.ID)
	require.NoError(t, err)
	assert.Equal(t, database.ScanStatusCompleted, untouched.Status)
}

func TestCleanupHistory(t *testing.T) {
	db := setupTestDB(t)
	store := NewStateStore(db)

	old := time.Now().Add(-60 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)

	stale := createTestScan(t, store, database.ScanStatusCompleted)
	require.NoError(t, db.Model(&database.LibraryScan{}).Where("id = ?", stale.ID).
		Update("finished_at", old).Error)

	fresh := createTestScan(t, store, database.ScanStatusCompleted)
	require.NoError(t, db.Model(&database.LibraryScan{}).Where("id = ?", fresh.ID).
		Update("finished_at", recent).Error)

	// Non-terminal rows are never cleaned up.
	createTestScan(t, store, database.ScanStatusRunning)

	n, err := store.CleanupHistory(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(stale.ID)
	assert.ErrorIs(t, err, ErrScanNotFound)
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}
