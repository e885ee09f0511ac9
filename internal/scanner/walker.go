package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// errStopWalk aborts a walk from inside the visit callback.
var errStopWalk = fmt.Errorf("walk stopped")

// Walker produces the lazy, finite sequence of candidate media paths
// under a root. A walk is single-use: each call to Walk traverses the
// tree once, in directory order, and cannot be rewound.
type Walker struct {
	root       string
	recursive  bool
	extensions map[string]struct{}
}

// NewWalker creates a walker for root. Extensions are compared
// case-insensitively and must include the leading dot.
func NewWalker(root string, recursive bool, extensions []string) *Walker {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &Walker{root: root, recursive: recursive, extensions: exts}
}

// Count walks the tree once and returns the number of candidate files.
// Used for progress estimation before the real walk starts.
func (w *Walker) Count() (int, error) {
	count := 0
	err := w.Walk(func(string, os.FileInfo) (bool, error) {
		count++
		return true, nil
	})
	return count, err
}

// Walk visits every candidate file under the root. The visit callback
// returns false to stop the walk early; a callback error aborts the walk
// and is returned as-is.
func (w *Walker) Walk(visit func(path string, info os.FileInfo) (bool, error)) error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return fmt.Errorf("library root is not readable: %w", err)
			}
			// Unreadable subtree entries are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			if !w.recursive && path != w.root {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.candidate(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		keep, err := visit(path, info)
		if err != nil {
			return err
		}
		if !keep {
			return errStopWalk
		}
		return nil
	})
	if err == errStopWalk {
		return nil
	}
	return err
}

func (w *Walker) candidate(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
