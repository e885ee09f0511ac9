package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// FileMonitor watches the library tree and requests a scan once changes
// settle. A request that collides with an active run is simply skipped:
// the next change, or the next manual start, will pick the files up.
type FileMonitor struct {
	coordinator *Coordinator
	root        string
	debounce    time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFileMonitor creates a monitor over the configured library root.
func NewFileMonitor(coordinator *Coordinator, root string, debounce time.Duration) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileMonitor{
		coordinator: coordinator,
		root:        root,
		debounce:    debounce,
		watcher:     watcher,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start registers the tree with the watcher and begins processing events.
func (fm *FileMonitor) Start() error {
	if err := fm.watchTree(fm.root); err != nil {
		return err
	}

	fm.wg.Add(1)
	go fm.loop()

	logger.Info("file monitor watching %s (debounce %s)", fm.root, fm.debounce)
	return nil
}

// Stop tears the monitor down.
func (fm *FileMonitor) Stop() error {
	fm.cancel()
	err := fm.watcher.Close()
	fm.wg.Wait()
	return err
}

func (fm *FileMonitor) loop() {
	defer fm.wg.Done()

	timer := time.NewTimer(fm.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-fm.ctx.Done():
			return

		case ev, ok := <-fm.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories must be registered or their contents
				// are invisible to the watcher.
				if err := fm.watchTree(ev.Name); err != nil {
					logger.Debug("failed to watch %s: %v", ev.Name, err)
				}
			}
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(fm.debounce)
			pending = true

		case err, ok := <-fm.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error: %v", err)

		case <-timer.C:
			pending = false
			fm.triggerScan()
		}
	}
}

func (fm *FileMonitor) triggerScan() {
	cfg := fm.coordinator.cfg
	_, err := fm.coordinator.Start(StartOptions{
		RootPath:  fm.root,
		Recursive: cfg.Library.Recursive,
	})
	switch {
	case err == nil:
		logger.Info("file monitor started scan of %s", fm.root)
	case errors.Is(err, ErrScanConflict):
		logger.Debug("file monitor skipped scan: a run is already active")
	default:
		logger.Warn("file monitor failed to start scan: %v", err)
	}
}

// watchTree adds path and every directory below it to the watcher.
// Non-directory paths are ignored.
func (fm *FileMonitor) watchTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fm.watcher.Add(p); err != nil {
			logger.Debug("failed to watch directory %s: %v", p, err)
		}
		return nil
	})
}
