// Package scanner implements the scan job state machine: the single
// active walk-extract-reconcile run, its cooperative pause/cancel token
// and the coordinator that owns run exclusivity.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/catalog"
	"github.com/Alexzafra13/echo-sub000/internal/config"
	"github.com/Alexzafra13/echo-sub000/internal/database"
	"github.com/Alexzafra13/echo-sub000/internal/events"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrScanConflict is returned when a start request arrives while a
	// run is pending, running or paused.
	ErrScanConflict = errors.New("a scan is already active")

	// ErrScanNotActive is returned for control commands that reference a
	// run other than the currently active one.
	ErrScanNotActive = errors.New("scan is not active")

	// ErrInvalidRoot is returned when the requested root path is not a
	// readable directory under the configured library root.
	ErrInvalidRoot = errors.New("invalid scan root")
)

// ActiveRun is the in-memory state of the one live run: its
// cancellation token and progress tracker.
type ActiveRun struct {
	ID      string
	Token   *CancelToken
	Tracker *Tracker
}

// ScanStatus is a persisted scan merged with the live progress snapshot
// when the run is active.
type ScanStatus struct {
	database.LibraryScan
	Progress *Snapshot `json:"progress,omitempty"`
}

// StartOptions are the resolved parameters for one run.
type StartOptions struct {
	RootPath     string
	Recursive    bool
	PruneDeleted bool
}

// Coordinator owns the single-active-run invariant. The run slot is a
// mutual-exclusion token claimed by compare-and-swap on start and
// released on any terminal transition; it is never an ambient global.
type Coordinator struct {
	cfg         *config.Config
	states      *StateStore
	catalog     *catalog.Store
	broadcaster *events.Broadcaster
	extractor   Extractor

	active atomic.Pointer[ActiveRun]
}

// NewCoordinator wires a coordinator over an open database handle.
func NewCoordinator(cfg *config.Config, db *gorm.DB, broadcaster *events.Broadcaster) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		states:      NewStateStore(db),
		catalog:     catalog.NewStore(db),
		broadcaster: broadcaster,
		extractor:   NewTagExtractor(),
	}
}

// SetExtractor replaces the metadata extractor. Used by tests and by
// deployments with an out-of-process extractor.
func (c *Coordinator) SetExtractor(e Extractor) {
	c.extractor = e
}

// States exposes the scan state store for startup housekeeping.
func (c *Coordinator) States() *StateStore {
	return c.states
}

// Start validates the request, claims the run slot, persists a pending
// scan and enqueues the worker. It returns immediately; the scan runs on
// its own goroutine. Fails with ErrScanConflict and writes nothing when
// a run is already pending/running/paused.
func (c *Coordinator) Start(opts StartOptions) (*database.LibraryScan, error) {
	root, err := c.resolveRoot(opts.RootPath)
	if err != nil {
		return nil, err
	}

	run := &ActiveRun{
		ID:      uuid.NewString(),
		Token:   NewCancelToken(),
		Tracker: NewTracker(c.cfg.Scanner.ProgressEveryFiles, c.cfg.Scanner.ProgressInterval),
	}
	if !c.active.CompareAndSwap(nil, run) {
		return nil, ErrScanConflict
	}

	scan := &database.LibraryScan{
		ID:           run.ID,
		Status:       database.ScanStatusPending,
		RootPath:     root,
		Recursive:    opts.Recursive,
		PruneDeleted: opts.PruneDeleted,
	}
	if err := c.states.Create(scan); err != nil {
		c.active.CompareAndSwap(run, nil)
		return nil, err
	}

	worker := &Worker{
		scan:             scan,
		walker:           NewWalker(root, opts.Recursive, c.cfg.Library.Extensions),
		extractor:        c.extractor,
		reconciler:       NewReconciler(c.catalog, c.cfg.Library.AssetDir, c.cfg.Scanner.ExtractCovers, c.cfg.Scanner.EncodeCoversWebP),
		catalog:          c.catalog,
		states:           c.states,
		broadcaster:      c.broadcaster,
		token:            run.Token,
		tracker:          run.Tracker,
		extractTimeout:   c.cfg.Scanner.ExtractTimeout,
		missingRetention: c.cfg.Scanner.MissingRetention,
		onTerminal: func(string) {
			c.active.CompareAndSwap(run, nil)
		},
	}
	go worker.Run()

	logger.Info("scan %s queued for %s", run.ID, root)
	return scan, nil
}

// GetStatus returns the persisted scan merged with the live snapshot
// when the run is active.
func (c *Coordinator) GetStatus(id string) (*ScanStatus, error) {
	scan, err := c.states.Get(id)
	if err != nil {
		return nil, err
	}
	status := &ScanStatus{LibraryScan: *scan}
	if run := c.active.Load(); run != nil && run.ID == id {
		snap := run.Tracker.Current()
		status.Progress = &snap
	}
	return status, nil
}

// ListHistory returns one page of scan history, newest first.
func (c *Coordinator) ListHistory(page, limit int) ([]database.LibraryScan, int64, error) {
	return c.states.List(page, limit)
}

// Active returns the id of the live run, if any.
func (c *Coordinator) Active() (string, bool) {
	run := c.active.Load()
	if run == nil {
		return "", false
	}
	return run.ID, true
}

// Pause suspends the active run at its next checkpoint.
func (c *Coordinator) Pause(runID string) error {
	run, err := c.activeFor(runID)
	if err != nil {
		return err
	}
	scan, err := c.states.Get(runID)
	if err != nil {
		return err
	}
	if scan.Status != database.ScanStatusRunning {
		return fmt.Errorf("cannot pause scan in state %s: %w", scan.Status, ErrScanNotActive)
	}
	if !run.Token.Pause() {
		return fmt.Errorf("cannot pause scan in state %s: %w", scan.Status, ErrScanNotActive)
	}
	if err := c.states.SetStatus(runID, database.ScanStatusPaused, ""); err != nil {
		return err
	}
	c.publish(events.EventScanPaused, runID, "scan paused", "")
	logger.Info("scan %s paused", runID)
	return nil
}

// Resume wakes a paused run; it continues from its held position.
func (c *Coordinator) Resume(runID string) error {
	run, err := c.activeFor(runID)
	if err != nil {
		return err
	}
	if !run.Token.Resume() {
		scan, serr := c.states.Get(runID)
		state := "unknown"
		if serr == nil {
			state = scan.Status
		}
		return fmt.Errorf("cannot resume scan in state %s: %w", state, ErrScanNotActive)
	}
	if err := c.states.SetStatus(runID, database.ScanStatusRunning, ""); err != nil {
		return err
	}
	c.publish(events.EventScanResumed, runID, "scan resumed", "")
	logger.Info("scan %s resumed", runID)
	return nil
}

// Cancel requests cooperative cancellation. The worker stops at its next
// checkpoint, persists the counters accumulated so far and emits the
// terminal cancelled event itself.
func (c *Coordinator) Cancel(runID, reason string) error {
	run, err := c.activeFor(runID)
	if err != nil {
		return err
	}
	if !run.Token.Cancel(reason) {
		return fmt.Errorf("scan already cancelled: %w", ErrScanNotActive)
	}
	logger.Info("scan %s cancellation requested: %s", runID, reason)
	return nil
}

// Shutdown pauses the active run so its position and counters survive a
// graceful restart as a paused row.
func (c *Coordinator) Shutdown() {
	run := c.active.Load()
	if run == nil {
		return
	}
	if run.Token.Pause() {
		if err := c.states.SetStatus(run.ID, database.ScanStatusPaused, ""); err != nil {
			logger.Warn("failed to persist paused state on shutdown: %v", err)
		}
		c.publish(events.EventScanPaused, run.ID, "server shutting down", "")
		logger.Info("scan %s paused for shutdown", run.ID)
	}
}

// activeFor resolves a control command's run id against the live run.
// Unknown ids surface ErrScanNotFound; known-but-terminal (or otherwise
// not live) ids surface ErrScanNotActive rather than a silent no-op.
func (c *Coordinator) activeFor(runID string) (*ActiveRun, error) {
	run := c.active.Load()
	if run != nil && run.ID == runID {
		return run, nil
	}
	scan, err := c.states.Get(runID)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("scan is in state %s: %w", scan.Status, ErrScanNotActive)
}

func (c *Coordinator) resolveRoot(requested string) (string, error) {
	root := requested
	if root == "" {
		root = c.cfg.Library.Root
	}
	root = filepath.Clean(root)

	configured := filepath.Clean(c.cfg.Library.Root)
	rel, err := filepath.Rel(configured, root)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path is outside the configured library: %w", ErrInvalidRoot)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("path is not readable: %w", ErrInvalidRoot)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %w", ErrInvalidRoot)
	}
	return root, nil
}

func (c *Coordinator) publish(t events.EventType, runID, msg, reason string) {
	c.broadcaster.Publish(events.Event{
		Type:      t,
		RunID:     runID,
		Message:   msg,
		Reason:    reason,
		Timestamp: time.Now(),
	})
}
