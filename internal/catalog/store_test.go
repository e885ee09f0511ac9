package catalog

import (
	"testing"
	"time"

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
	)
	require.NoError(t, err)

	return db
}

func testTrack(path string, size int64, mod time.Time) *database.Track {
	return &database.Track{
		Path:    path,
		Title:   "Test Track",
		Size:    size,
		ModTime: mod,
	}
}

func TestUpsertArtistIdempotent(t *testing.T) {
	store := NewStore(setupTestDB(t))

	first, created, err := store.UpsertArtist("Radiohead", "")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.UpsertArtist("radiohead", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpsertAlbumRefreshesFields(t *testing.T) {
	store := NewStore(setupTestDB(t))

	artist, _, err := store.UpsertArtist("Radiohead", "")
	require.NoError(t, err)

	album, created, err := store.UpsertAlbumByPID(artist.ID, "OK Computer", 1997, "rel-1")
	require.NoError(t, err)
	assert.True(t, created)

	// Same external id, corrected name: same row, updated fields.
	again, created, err := store.UpsertAlbumByPID(artist.ID, "OK Computer OKNOTOK", 1997, "rel-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, album.ID, again.ID)
	assert.Equal(t, "OK Computer OKNOTOK", again.Name)
}

func TestUpsertTrackByPathPreservesIdentity(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	mod := time.Now().Truncate(time.Second)
	first, created, err := store.UpsertTrackByPath(testTrack("/music/a.mp3", 100, mod))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	// Mark the row missing, then upsert the same path again.
	require.NoError(t, db.Model(&database.Track{}).Where("id = ?", first.ID).
		Update("missing_at", time.Now()).Error)

	second, created, err := store.UpsertTrackByPath(testTrack("/music/a.mp3", 200, mod))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, second.MissingAt)

	var stored database.Track
	require.NoError(t, db.First(&stored, "id = ?", first.ID).Error)
	assert.Equal(t, int64(200), stored.Size)
	assert.Nil(t, stored.MissingAt)
}

func TestMarkMissingSkipsSeenAndAlreadyMissing(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	mod := time.Now()
	for _, p := range []string{"/music/a.mp3", "/music/b.mp3", "/music/c.mp3"} {
		_, _, err := store.UpsertTrackByPath(testTrack(p, 10, mod))
		require.NoError(t, err)
	}

	seen := map[string]struct{}{"/music/a.mp3": {}}
	marked, err := store.MarkMissing("/music", true, seen, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	// A second pass with the same observations marks nothing new.
	marked, err = store.MarkMissing("/music", true, seen, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	present, err := store.CountPresent("/music")
	require.NoError(t, err)
	assert.Equal(t, int64(1), present)
}

func TestMarkMissingNonRecursiveIgnoresSubdirectories(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	mod := time.Now()
	for _, p := range []string{"/music/top.mp3", "/music/artist/album/deep.mp3"} {
		_, _, err := store.UpsertTrackByPath(testTrack(p, 10, mod))
		require.NoError(t, err)
	}

	// Only direct children are in scope; the nested row was never
	// observable by the walk and must stay present.
	marked, err := store.MarkMissing("/music", false, map[string]struct{}{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	var deep database.Track
	require.NoError(t, db.First(&deep, "path = ?", "/music/artist/album/deep.mp3").Error)
	assert.Nil(t, deep.MissingAt)

	var top database.Track
	require.NoError(t, db.First(&top, "path = ?", "/music/top.mp3").Error)
	assert.NotNil(t, top.MissingAt)
}

func TestClearMissing(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, _, err := store.UpsertTrackByPath(testTrack("/music/a.mp3", 10, time.Now()))
	require.NoError(t, err)

	_, err = store.MarkMissing("/music", true, map[string]struct{}{}, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.ClearMissing("/music/a.mp3"))

	present, err := store.CountPresent("/music")
	require.NoError(t, err)
	assert.Equal(t, int64(1), present)
}

func TestPruneMissingHonorsCutoff(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, _, err := store.UpsertTrackByPath(testTrack("/music/old.mp3", 10, time.Now()))
	require.NoError(t, err)
	_, _, err = store.UpsertTrackByPath(testTrack("/music/new.mp3", 10, time.Now()))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)
	require.NoError(t, db.Model(&database.Track{}).Where("path = ?", "/music/old.mp3").
		Update("missing_at", old).Error)
	require.NoError(t, db.Model(&database.Track{}).Where("path = ?", "/music/new.mp3").
		Update("missing_at", recent).Error)

	pruned, err := store.PruneMissing("/music", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	var remaining int64
	require.NoError(t, db.Model(&database.Track{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestTracksByPathScopedToRoot(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, _, err := store.UpsertTrackByPath(testTrack("/music/a.mp3", 10, time.Now()))
	require.NoError(t, err)
	_, _, err = store.UpsertTrackByPath(testTrack("/other/b.mp3", 10, time.Now()))
	require.NoError(t, err)

	byPath, err := store.TracksByPath("/music")
	require.NoError(t, err)
	assert.Len(t, byPath, 1)
	assert.Contains(t, byPath, "/music/a.mp3")
}
