package scanner

import (
	"sync"
	"time"
)

// Snapshot is the ephemeral progress report for a run. Last write wins:
// each emission supersedes the previous one and nothing is retained once
// the run is terminal.
type Snapshot struct {
	FilesScanned    int     `json:"filesScanned"`
	TotalFiles      int     `json:"totalFiles"`
	TracksCreated   int     `json:"tracksCreated"`
	AlbumsCreated   int     `json:"albumsCreated"`
	ArtistsCreated  int     `json:"artistsCreated"`
	CoversExtracted int     `json:"coversExtracted"`
	ErrorCount      int     `json:"errorCount"`
	CurrentFile     string  `json:"currentFile"`
	Percentage      float64 `json:"percentage"`
	Message         string  `json:"message"`
}

// Tracker accumulates the in-memory snapshot for one run and throttles
// emissions to at most one per everyFiles files or interval elapsed,
// whichever triggers first.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot

	tracksUpdated int

	everyFiles     int
	interval       time.Duration
	filesSinceEmit int
	lastEmit       time.Time
}

// NewTracker creates a tracker with the given throttle parameters.
func NewTracker(everyFiles int, interval time.Duration) *Tracker {
	return &Tracker{
		everyFiles: everyFiles,
		interval:   interval,
		lastEmit:   time.Now(),
	}
}

// SetTotal records the total candidate count for percentage math.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.TotalFiles = total
}

// FileResult describes what reconciling one file changed.
type FileResult struct {
	TrackCreated  bool
	TrackUpdated  bool
	AlbumCreated  bool
	ArtistCreated bool
	CoverSaved    bool
	Failed        bool
}

// FileDone records one processed file and reports whether an emission is
// due under the throttle.
func (t *Tracker) FileDone(path string, res FileResult) (emit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.FilesScanned++
	t.snap.CurrentFile = path
	if res.TrackCreated {
		t.snap.TracksCreated++
	}
	if res.TrackUpdated {
		t.tracksUpdated++
	}
	if res.AlbumCreated {
		t.snap.AlbumsCreated++
	}
	if res.ArtistCreated {
		t.snap.ArtistsCreated++
	}
	if res.CoverSaved {
		t.snap.CoversExtracted++
	}
	if res.Failed {
		t.snap.ErrorCount++
	}
	t.updatePercentageLocked()

	t.filesSinceEmit++
	if t.filesSinceEmit >= t.everyFiles || time.Since(t.lastEmit) >= t.interval {
		t.filesSinceEmit = 0
		t.lastEmit = time.Now()
		return true
	}
	return false
}

// Counters returns the persistent counter values accumulated so far:
// tracks added, tracks updated and errors.
func (t *Tracker) Counters() (added, updated, errs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.TracksCreated, t.tracksUpdated, t.snap.ErrorCount
}

// SetMessage updates the human-readable progress message.
func (t *Tracker) SetMessage(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Message = msg
}

// Finish pins the snapshot at 100% for the final emission.
func (t *Tracker) Finish(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Percentage = 100
	t.snap.CurrentFile = ""
	t.snap.Message = msg
}

// Current returns a copy of the live snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *Tracker) updatePercentageLocked() {
	if t.snap.TotalFiles <= 0 {
		t.snap.Percentage = 0
		return
	}
	pct := float64(t.snap.FilesScanned) / float64(t.snap.TotalFiles) * 100
	if pct > 100 {
		pct = 100
	}
	t.snap.Percentage = pct
}
