package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexzafra13/echo-sub000/internal/database"
)

func TestFileMonitorTriggersScanAfterChange(t *testing.T) {
	f := newScanFixture(t)

	monitor, err := NewFileMonitor(f.coordinator, f.root, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, monitor.Start())
	t.Cleanup(func() { monitor.Stop() })

	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "artist", "album"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(f.root, "artist", "album", "01.mp3"),
		[]byte("test audio data"), 0644))

	require.Eventually(t, func() bool {
		scans, _, err := f.coordinator.ListHistory(1, 10)
		if err != nil {
			return false
		}
		for _, s := range scans {
			if s.Status == database.ScanStatusCompleted && s.TracksAdded == 1 {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "monitor never triggered a completing scan")
}

func TestFileMonitorStopIsClean(t *testing.T) {
	f := newScanFixture(t)

	monitor, err := NewFileMonitor(f.coordinator, f.root, time.Hour)
	require.NoError(t, err)
	require.NoError(t, monitor.Start())

	assert.NoError(t, monitor.Stop())
}
