// Package catalog persists Track, Album and Artist rows. All writes are
// idempotent upserts keyed by unique track path or stable album/artist
// PID, so re-running reconciliation never produces duplicates.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the gorm-backed catalog store.
type Store struct {
	db *gorm.DB
}

// NewStore creates a catalog store on an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// TracksByPath loads every track under root into a path-keyed map. The
// scan worker uses this for the cheap size/mtime comparison that lets it
// skip unchanged files without touching the extractor.
func (s *Store) TracksByPath(root string) (map[string]*database.Track, error) {
	var tracks []database.Track
	if err := s.db.Where("path LIKE ?", likePrefix(root)).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to preload tracks: %w", err)
	}

	byPath := make(map[string]*database.Track, len(tracks))
	for i := range tracks {
		byPath[tracks[i].Path] = &tracks[i]
	}
	return byPath, nil
}

// UpsertArtist creates or refreshes the artist row for the given
// identity, returning the row and whether it was newly created.
func (s *Store) UpsertArtist(name, externalID string) (*database.Artist, bool, error) {
	pid := ArtistPID(externalID, name)

	var artist database.Artist
	err := s.db.First(&artist, "id = ?", pid).Error
	switch {
	case err == nil:
		if artist.Name != name || artist.ExternalID != externalID {
			artist.Name = name
			artist.ExternalID = externalID
			if err := s.db.Save(&artist).Error; err != nil {
				return nil, false, fmt.Errorf("failed to update artist: %w", err)
			}
		}
		return &artist, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		artist = database.Artist{ID: pid, Name: name, ExternalID: externalID}
		if err := s.db.Create(&artist).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create artist: %w", err)
		}
		return &artist, true, nil
	default:
		return nil, false, fmt.Errorf("failed to look up artist: %w", err)
	}
}

// UpsertAlbumByPID creates or refreshes the album row for the given
// identity, returning the row and whether it was newly created.
func (s *Store) UpsertAlbumByPID(artistID, name string, year int, externalID string) (*database.Album, bool, error) {
	pid := AlbumPID(externalID, artistID, name, year)

	var album database.Album
	err := s.db.First(&album, "id = ?", pid).Error
	switch {
	case err == nil:
		if album.Name != name || album.Year != year || album.ArtistID != artistID {
			album.Name = name
			album.Year = year
			album.ArtistID = artistID
			if err := s.db.Save(&album).Error; err != nil {
				return nil, false, fmt.Errorf("failed to update album: %w", err)
			}
		}
		return &album, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		album = database.Album{ID: pid, ArtistID: artistID, Name: name, Year: year, ExternalID: externalID}
		if err := s.db.Create(&album).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create album: %w", err)
		}
		return &album, true, nil
	default:
		return nil, false, fmt.Errorf("failed to look up album: %w", err)
	}
}

// SetAlbumCover records the extracted cover path for an album.
func (s *Store) SetAlbumCover(albumID, coverPath string) error {
	return s.db.Model(&database.Album{}).Where("id = ?", albumID).
		Update("cover_path", coverPath).Error
}

// UpsertTrackByPath writes a track row keyed by its unique path,
// returning the persisted row and whether it was newly created. A
// rediscovered track (previously marked missing) has its MissingAt
// cleared here.
func (s *Store) UpsertTrackByPath(track *database.Track) (*database.Track, bool, error) {
	var existing database.Track
	err := s.db.First(&existing, "path = ?", track.Path).Error
	switch {
	case err == nil:
		track.ID = existing.ID
		track.CreatedAt = existing.CreatedAt
		track.MissingAt = nil
		if err := s.db.Save(track).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update track: %w", err)
		}
		return track, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if track.ID == "" {
			track.ID = uuid.NewString()
		}
		track.MissingAt = nil
		if err := s.db.Create(track).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create track: %w", err)
		}
		return track, true, nil
	default:
		return nil, false, fmt.Errorf("failed to look up track: %w", err)
	}
}

// ClearMissing marks a previously missing track as present again.
func (s *Store) ClearMissing(path string) error {
	return s.db.Model(&database.Track{}).Where("path = ?", path).
		Update("missing_at", nil).Error
}

// MarkMissing stamps MissingAt=now on every present track inside the
// walk's coverage whose path was not observed. A non-recursive walk
// only covers direct children of root, so rows in subdirectories are
// out of scope rather than missing and stay untouched. Returns the
// number of rows newly marked.
func (s *Store) MarkMissing(root string, recursive bool, seen map[string]struct{}, now time.Time) (int, error) {
	query := s.db.Where("path LIKE ? AND missing_at IS NULL", likePrefix(root))
	if !recursive {
		query = query.Where("path NOT LIKE ?", likePrefix(root)+"/%")
	}

	var candidates []database.Track
	err := query.Find(&candidates).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load tracks for missing check: %w", err)
	}

	marked := 0
	for i := range candidates {
		if _, ok := seen[candidates[i].Path]; ok {
			continue
		}
		err := s.db.Model(&database.Track{}).Where("id = ?", candidates[i].ID).
			Update("missing_at", now).Error
		if err != nil {
			return marked, fmt.Errorf("failed to mark track missing: %w", err)
		}
		marked++
	}
	return marked, nil
}

// PruneMissing physically removes tracks that have been missing since
// before the cutoff. Returns the number of rows deleted.
func (s *Store) PruneMissing(root string, cutoff time.Time) (int, error) {
	result := s.db.Where("path LIKE ? AND missing_at IS NOT NULL AND missing_at < ?",
		likePrefix(root), cutoff).Delete(&database.Track{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune missing tracks: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// CountPresent returns the number of non-missing tracks under root.
func (s *Store) CountPresent(root string) (int64, error) {
	var count int64
	err := s.db.Model(&database.Track{}).
		Where("path LIKE ? AND missing_at IS NULL", likePrefix(root)).
		Count(&count).Error
	return count, err
}

func likePrefix(root string) string {
	root = strings.TrimSuffix(root, "/")
	return root + "/%"
}
