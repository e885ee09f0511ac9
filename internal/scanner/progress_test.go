package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerThrottlesByFileCount(t *testing.T) {
	tracker := NewTracker(3, time.Hour)
	tracker.SetTotal(6)

	assert.False(t, tracker.FileDone("/m/1.mp3", FileResult{TrackCreated: true}))
	assert.False(t, tracker.FileDone("/m/2.mp3", FileResult{TrackCreated: true}))
	assert.True(t, tracker.FileDone("/m/3.mp3", FileResult{TrackCreated: true}))

	// Counter resets after an emission.
	assert.False(t, tracker.FileDone("/m/4.mp3", FileResult{Failed: true}))

	snap := tracker.Current()
	assert.Equal(t, 4, snap.FilesScanned)
	assert.Equal(t, 3, snap.TracksCreated)
	assert.Equal(t, 1, snap.ErrorCount)
	assert.Equal(t, "/m/4.mp3", snap.CurrentFile)
	assert.InDelta(t, 66.6, snap.Percentage, 1.0)
}

func TestTrackerThrottlesByInterval(t *testing.T) {
	tracker := NewTracker(1000, 10*time.Millisecond)
	tracker.SetTotal(2)

	assert.False(t, tracker.FileDone("/m/1.mp3", FileResult{}))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, tracker.FileDone("/m/2.mp3", FileResult{}))
}

func TestTrackerCountersNeverDecrease(t *testing.T) {
	tracker := NewTracker(10, time.Hour)

	tracker.FileDone("/m/1.mp3", FileResult{TrackCreated: true, AlbumCreated: true, ArtistCreated: true})
	tracker.FileDone("/m/2.mp3", FileResult{TrackUpdated: true})
	tracker.FileDone("/m/3.mp3", FileResult{})

	added, updated, errs := tracker.Counters()
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 0, errs)

	snap := tracker.Current()
	assert.Equal(t, 1, snap.AlbumsCreated)
	assert.Equal(t, 1, snap.ArtistsCreated)
}

func TestTrackerFinishPinsSnapshot(t *testing.T) {
	tracker := NewTracker(10, time.Hour)
	tracker.SetTotal(100)
	tracker.FileDone("/m/1.mp3", FileResult{})

	tracker.Finish("scan completed")

	snap := tracker.Current()
	assert.Equal(t, float64(100), snap.Percentage)
	assert.Empty(t, snap.CurrentFile)
	assert.Equal(t, "scan completed", snap.Message)
}

func TestTrackerZeroTotal(t *testing.T) {
	tracker := NewTracker(10, time.Hour)
	tracker.FileDone("/m/1.mp3", FileResult{})
	assert.Equal(t, float64(0), tracker.Current().Percentage)
}
