package database

import (
	"time"
)

// Scan status values for LibraryScan.Status
const (
	ScanStatusPending   = "pending"
	ScanStatusRunning   = "running"
	ScanStatusPaused    = "paused"
	ScanStatusCompleted = "completed"
	ScanStatusCancelled = "cancelled"
	ScanStatusFailed    = "failed"
)

// ScanStatusTerminal reports whether a scan status admits no further transitions.
func ScanStatusTerminal(status string) bool {
	switch status {
	case ScanStatusCompleted, ScanStatusCancelled, ScanStatusFailed:
		return true
	}
	return false
}

// LibraryScan represents one indexing run over the library tree.
// FinishedAt is set exactly when the status is terminal; the counters
// only ever grow while the run is live.
type LibraryScan struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Status        string     `gorm:"not null;index" json:"status"`
	RootPath      string     `gorm:"not null" json:"rootPath"`
	Recursive     bool       `json:"recursive"`
	PruneDeleted  bool       `json:"pruneDeleted"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt"`
	TracksAdded   int        `json:"tracksAdded"`
	TracksUpdated int        `json:"tracksUpdated"`
	TracksDeleted int        `json:"tracksDeleted"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Artist is a catalog row keyed by a stable persistent identifier.
type Artist struct {
	ID         string    `gorm:"primaryKey;size:40" json:"id"`
	Name       string    `gorm:"not null;index" json:"name"`
	ExternalID string    `gorm:"index" json:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Album is a catalog row keyed by a stable persistent identifier so that
// re-importing the same release never creates a duplicate row.
type Album struct {
	ID         string    `gorm:"primaryKey;size:40" json:"id"`
	ArtistID   string    `gorm:"index;size:40" json:"artistId"`
	Name       string    `gorm:"not null" json:"name"`
	Year       int       `json:"year"`
	ExternalID string    `gorm:"index" json:"externalId,omitempty"`
	CoverPath  string    `json:"coverPath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Track is a catalog row uniquely identified by its on-disk path.
// MissingAt is null while the backing file was present on the most
// recent completed walk.
type Track struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Path        string     `gorm:"uniqueIndex;not null" json:"path"`
	Title       string     `gorm:"not null" json:"title"`
	ArtistID    string     `gorm:"index;size:40" json:"artistId"`
	AlbumID     string     `gorm:"index;size:40" json:"albumId"`
	TrackNumber int        `json:"trackNumber"`
	DiscNumber  int        `json:"discNumber"`
	Year        int        `json:"year"`
	Genre       string     `json:"genre,omitempty"`
	Size        int64      `json:"size"`
	ModTime     time.Time  `json:"modTime"`
	MissingAt   *time.Time `gorm:"index" json:"missingAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
