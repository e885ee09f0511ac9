package scanner

import (
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/catalog"
	"github.com/Alexzafra13/echo-sub000/internal/database"
	"github.com/Alexzafra13/echo-sub000/internal/events"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
)

// Worker drives the walk-extract-reconcile loop for exactly one run.
// The cancellation token is checked at every per-file boundary; a paused
// worker blocks inside the checkpoint without losing its position. A
// per-file extraction error is counted and the loop continues; only
// structural failures (unreadable root, catalog write failure) abort
// the run.
type Worker struct {
	scan        *database.LibraryScan
	walker      *Walker
	extractor   Extractor
	reconciler  *Reconciler
	catalog     *catalog.Store
	states      *StateStore
	broadcaster *events.Broadcaster
	token       *CancelToken
	tracker     *Tracker

	extractTimeout   time.Duration
	missingRetention time.Duration

	// rows already marked missing or pruned this run, so a failure
	// after partial reconciliation still persists what changed
	deleted int

	// invoked exactly once with the terminal status
	onTerminal func(status string)
}

// Run executes the scan to a terminal state. It is meant to be called
// once, on its own goroutine.
func (w *Worker) Run() {
	if w.token.Checkpoint() {
		w.finishCancelled()
		return
	}

	if err := w.states.SetStatus(w.scan.ID, database.ScanStatusRunning, ""); err != nil {
		w.fail(err)
		return
	}
	w.publish(events.EventScanStarted, "scan started", "", nil)
	logger.Info("scan %s started for %s", w.scan.ID, w.scan.RootPath)

	total, err := w.walker.Count()
	if err != nil {
		w.fail(err)
		return
	}
	w.tracker.SetTotal(total)

	existing, err := w.catalog.TracksByPath(w.scan.RootPath)
	if err != nil {
		w.fail(err)
		return
	}

	seen := make(map[string]struct{}, total)
	var fatal error
	err = w.walker.Walk(func(path string, info os.FileInfo) (bool, error) {
		if w.token.Checkpoint() {
			return false, nil
		}
		res, perr := w.processFile(path, info, existing, seen)
		if perr != nil {
			fatal = perr
			return false, nil
		}
		if w.tracker.FileDone(path, res) {
			w.emitProgress()
		}
		return true, nil
	})
	if err != nil {
		w.fail(err)
		return
	}
	if fatal != nil {
		w.fail(fatal)
		return
	}
	if w.token.Cancelled() {
		w.finishCancelled()
		return
	}

	missing, pruned, err := w.reconciler.FinishWalk(w.scan.RootPath, w.scan.Recursive, seen, w.scan.PruneDeleted, w.missingRetention)
	w.deleted = missing + pruned
	if err != nil {
		w.fail(err)
		return
	}

	added, updated, errs := w.tracker.Counters()
	if err := w.states.SaveCounters(w.scan.ID, added, updated, missing+pruned); err != nil {
		w.fail(err)
		return
	}
	if err := w.states.SetStatus(w.scan.ID, database.ScanStatusCompleted, ""); err != nil {
		w.fail(err)
		return
	}

	w.tracker.Finish("scan completed")
	w.publish(events.EventScanCompleted, "scan completed", "", w.tracker.Current())
	logger.Info("scan %s completed: %d added, %d updated, %d missing, %d pruned, %d errors",
		w.scan.ID, added, updated, missing, pruned, errs)
	w.onTerminal(database.ScanStatusCompleted)
}

// processFile handles one candidate path. The size/mtime comparison
// against the preloaded catalog entry is what keeps repeated scans of an
// unchanged tree cheap: unchanged files never reach the extractor.
func (w *Worker) processFile(path string, info os.FileInfo, existing map[string]*database.Track, seen map[string]struct{}) (FileResult, error) {
	seen[path] = struct{}{}

	if prev, ok := existing[path]; ok && prev.Size == info.Size() && prev.ModTime.Unix() == info.ModTime().Unix() {
		if prev.MissingAt != nil {
			if err := w.reconciler.Rediscover(path); err != nil {
				return FileResult{}, err
			}
			return FileResult{TrackUpdated: true}, nil
		}
		return FileResult{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.extractTimeout)
	defer cancel()

	tags, err := w.extractor.Extract(ctx, path)
	if err != nil {
		logger.Debug("extraction failed for %s: %v", path, err)
		return FileResult{Failed: true}, nil
	}

	return w.reconciler.Apply(path, info, tags)
}

func (w *Worker) emitProgress() {
	added, updated, _ := w.tracker.Counters()
	if err := w.states.SaveCounters(w.scan.ID, added, updated, w.scan.TracksDeleted); err != nil {
		logger.Warn("failed to persist scan counters: %v", err)
	}
	w.publish(events.EventScanProgress, "", "", w.tracker.Current())
}

func (w *Worker) finishCancelled() {
	added, updated, _ := w.tracker.Counters()
	if err := w.states.SaveCounters(w.scan.ID, added, updated, w.deleted); err != nil {
		logger.Warn("failed to persist counters on cancel: %v", err)
	}
	if err := w.states.SetStatus(w.scan.ID, database.ScanStatusCancelled, ""); err != nil {
		logger.Error("failed to mark scan %s cancelled: %v", w.scan.ID, err)
	}
	w.publish(events.EventScanCancelled, "scan cancelled", w.token.Reason(), nil)
	logger.Info("scan %s cancelled", w.scan.ID)
	w.onTerminal(database.ScanStatusCancelled)
}

func (w *Worker) fail(cause error) {
	msg := sanitizeError(cause, w.scan.RootPath)
	added, updated, _ := w.tracker.Counters()
	if err := w.states.SaveCounters(w.scan.ID, added, updated, w.deleted); err != nil {
		logger.Warn("failed to persist counters on failure: %v", err)
	}
	if err := w.states.SetStatus(w.scan.ID, database.ScanStatusFailed, msg); err != nil {
		logger.Error("failed to mark scan %s failed: %v", w.scan.ID, err)
	}
	w.publish(events.EventScanFailed, msg, "", nil)
	logger.Error("scan %s failed: %v", w.scan.ID, cause)
	w.onTerminal(database.ScanStatusFailed)
}

func (w *Worker) publish(t events.EventType, msg, reason string, data interface{}) {
	w.broadcaster.Publish(events.Event{
		Type:      t,
		RunID:     w.scan.ID,
		Message:   msg,
		Reason:    reason,
		Data:      data,
		Timestamp: time.Now(),
	})
}

var absPathPattern = regexp.MustCompile(`(^|[\s"':=(])/[^\s"')]+`)

// sanitizeError produces a message safe to persist and broadcast: paths
// under the scanned root are relativized to it and any other absolute
// path is redacted. No stack traces ever reach the message because the
// worker only surfaces error strings.
func sanitizeError(err error, root string) string {
	msg := err.Error()
	msg = absPathPattern.ReplaceAllStringFunc(msg, func(match string) string {
		prefix := ""
		path := match
		if path[0] != '/' {
			prefix = match[:1]
			path = match[1:]
		}
		if root != "" {
			if path == root {
				return prefix + "<library>"
			}
			// Require a separator after the root so siblings like
			// /music-old do not match a root of /music.
			if strings.HasPrefix(path, root+"/") {
				return prefix + "<library>" + path[len(root):]
			}
		}
		return prefix + "<path>"
	})
	return msg
}
