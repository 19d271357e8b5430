package ueventd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ueventd/ueventd/pkg/coldboot"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	marker := filepath.Join(t.TempDir(), "coldboot_done")
	return &Manager{
		walker:           coldboot.NewWalker([]string{root}, marker, func() {}),
		coldbootRequests: make(chan chan error, 1),
		requestTimeout:   100 * time.Millisecond,
	}
}

// runColdbootBranchOnce mimics the single iteration of Run's select loop
// that answers a coldboot request, without needing a real netlink socket.
func runColdbootBranchOnce(m *Manager) {
	reply := <-m.coldbootRequests
	reply <- m.rerunColdboot()
}

func TestTriggerColdboot_RunsSynchronouslyAndWritesMarker(t *testing.T) {
	m := newTestManager(t)
	go runColdbootBranchOnce(m)

	if err := m.TriggerColdboot(); err != nil {
		t.Fatalf("TriggerColdboot() error = %v", err)
	}

	if _, err := os.Stat(m.walker.MarkerPath); err != nil {
		t.Fatalf("expected marker file to exist: %v", err)
	}
}

func TestTriggerColdboot_TimesOutWhenQueueFull(t *testing.T) {
	m := newTestManager(t)
	// Fill the single-slot queue so the next enqueue attempt blocks until
	// the timeout fires.
	m.coldbootRequests <- make(chan error, 1)

	err := m.TriggerColdboot()
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
