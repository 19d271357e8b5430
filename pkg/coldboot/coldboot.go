// Package coldboot seeds the event pipeline from sysfs at startup, so that
// devices already present before ueventd started still get materialized.
package coldboot

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/logging"
)

// DefaultRoots are the three sysfs trees the donor walks at coldboot, in
// order.
var DefaultRoots = []string{"/sys/class", "/sys/block", "/sys/devices"}

// DefaultMarkerPath is where Run records that coldboot already ran, so a
// restart does not re-synthesize every device's uevent.
const DefaultMarkerPath = "/dev/.coldboot_done"

// Walker walks the three sysfs roots, poking every uevent file it finds
// and draining the netlink socket after each poke.
type Walker struct {
	Roots      []string
	MarkerPath string
	Drain      func()
	logger     *zap.Logger
}

// NewWalker returns a Walker over roots (or DefaultRoots if empty), using
// markerPath (or DefaultMarkerPath if empty) to skip a repeat coldboot, and
// calling drain after each uevent poke.
func NewWalker(roots []string, markerPath string, drain func()) *Walker {
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	if markerPath == "" {
		markerPath = DefaultMarkerPath
	}
	if drain == nil {
		drain = func() {}
	}
	logger := logging.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{Roots: roots, MarkerPath: markerPath, Drain: drain, logger: logger}
}

// Run implements spec section 4.8: skip entirely if the marker exists,
// else walk every root and create the marker once done.
func (w *Walker) Run() error {
	if _, err := os.Stat(w.MarkerPath); err == nil {
		w.logger.Info("coldboot already done, skipping", zap.String("marker", w.MarkerPath))
		return nil
	}

	for _, root := range w.Roots {
		if err := w.walk(root); err != nil {
			w.logger.Warn("coldboot walk failed", zap.String("root", root), zap.Error(err))
		}
	}

	if err := os.WriteFile(w.MarkerPath, nil, 0644); err != nil {
		w.logger.Warn("failed to write coldboot marker", zap.Error(err))
		return err
	}
	return nil
}

// walk implements do_coldboot: poke this directory's uevent file (if any),
// drain, then recurse into every non-dotfile subdirectory.
func (w *Walker) walk(dir string) error {
	ueventPath := filepath.Join(dir, "uevent")
	if info, err := os.Stat(ueventPath); err == nil && !info.IsDir() {
		if err := os.WriteFile(ueventPath, []byte("add\n"), 0); err != nil {
			w.logger.Debug("coldboot poke failed", zap.String("path", ueventPath), zap.Error(err))
		} else {
			w.Drain()
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name[0] == '.' {
			continue
		}
		if err := w.walk(filepath.Join(dir, name)); err != nil {
			w.logger.Debug("coldboot subdir walk failed", zap.String("dir", name), zap.Error(err))
		}
	}

	return nil
}
