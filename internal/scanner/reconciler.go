package scanner

import (
	"fmt"
	"os"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/catalog"
	"github.com/Alexzafra13/echo-sub000/internal/database"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
)

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// Reconciler applies extracted tag data to the catalog: artist and album
// rows are upserted by stable PID, track rows by unique path, and after
// a completed walk unobserved rows are marked missing (and optionally
// pruned once past the retention window).
type Reconciler struct {
	catalog    *catalog.Store
	assetDir   string
	covers     bool
	encodeWebP bool
}

// NewReconciler creates a reconciler writing through the given catalog
// store. Cover extraction is skipped entirely when covers is false.
func NewReconciler(store *catalog.Store, assetDir string, covers, encodeWebP bool) *Reconciler {
	return &Reconciler{
		catalog:    store,
		assetDir:   assetDir,
		covers:     covers,
		encodeWebP: encodeWebP,
	}
}

// Apply upserts the catalog rows for one successfully extracted file.
func (r *Reconciler) Apply(path string, info os.FileInfo, tags *Tags) (FileResult, error) {
	var res FileResult

	artistName := tags.AlbumArtist
	if artistName == "" {
		artistName = tags.Artist
	}
	if artistName == "" {
		artistName = unknownArtist
	}
	albumName := tags.Album
	if albumName == "" {
		albumName = unknownAlbum
	}

	artist, artistCreated, err := r.catalog.UpsertArtist(artistName, "")
	if err != nil {
		return res, fmt.Errorf("artist upsert failed: %w", err)
	}
	res.ArtistCreated = artistCreated

	album, albumCreated, err := r.catalog.UpsertAlbumByPID(artist.ID, albumName, tags.Year, tags.ExternalID)
	if err != nil {
		return res, fmt.Errorf("album upsert failed: %w", err)
	}
	res.AlbumCreated = albumCreated

	track := &database.Track{
		Path:        path,
		Title:       tags.Title,
		ArtistID:    artist.ID,
		AlbumID:     album.ID,
		TrackNumber: tags.TrackNumber,
		DiscNumber:  tags.DiscNumber,
		Year:        tags.Year,
		Genre:       tags.Genre,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}
	_, created, err := r.catalog.UpsertTrackByPath(track)
	if err != nil {
		return res, fmt.Errorf("track upsert failed: %w", err)
	}
	res.TrackCreated = created
	res.TrackUpdated = !created

	if r.covers && len(tags.Picture) > 0 && album.CoverPath == "" {
		coverPath, err := saveCover(r.assetDir, album.ID, tags.Picture, tags.PictureMIME, r.encodeWebP)
		if err != nil {
			// A failed cover write never fails the file.
			logger.Warn("failed to save cover for album %s: %v", album.ID, err)
		} else if err := r.catalog.SetAlbumCover(album.ID, coverPath); err != nil {
			logger.Warn("failed to record cover for album %s: %v", album.ID, err)
		} else {
			res.CoverSaved = true
		}
	}

	return res, nil
}

// Rediscover clears MissingAt on an unchanged file that reappeared
// since the last walk.
func (r *Reconciler) Rediscover(path string) error {
	return r.catalog.ClearMissing(path)
}

// FinishWalk runs the post-walk reconciliation: rows inside the walk's
// coverage whose paths were not observed get MissingAt stamped, and
// when prune is requested, rows missing since before the retention
// window are physically removed. Returns the number of rows marked
// missing and pruned.
func (r *Reconciler) FinishWalk(root string, recursive bool, seen map[string]struct{}, prune bool, retention time.Duration) (missing, pruned int, err error) {
	now := time.Now()

	missing, err = r.catalog.MarkMissing(root, recursive, seen, now)
	if err != nil {
		return missing, 0, err
	}

	if prune {
		pruned, err = r.catalog.PruneMissing(root, now.Add(-retention))
		if err != nil {
			return missing, pruned, err
		}
	}
	return missing, pruned, nil
}
