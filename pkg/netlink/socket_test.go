//go:build linux

package netlink

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ueventd/ueventd/pkg/logging"
	"github.com/ueventd/ueventd/pkg/uevent"
)

// pipeSocket builds a Socket around a non-blocking pipe so Drain can be
// exercised without a real NETLINK_KOBJECT_UEVENT socket, which requires
// privileges Drain's tests should not depend on.
func pipeSocket(t *testing.T) (*Socket, int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	if logging.Logger == nil {
		if err := logging.InitLogger("error", false); err != nil {
			t.Fatalf("init logger: %v", err)
		}
	}
	return &Socket{fd: fds[0], logger: logging.Logger}, fds[1]
}

func TestDrain_DeliversParsedEvents(t *testing.T) {
	s, writeFD := pipeSocket(t)
	defer s.Close()
	defer unix.Close(writeFD)

	raw := []byte("add@/devices/x\x00ACTION=add\x00DEVPATH=/devices/x\x00SUBSYSTEM=input\x00")
	if _, err := unix.Write(writeFD, raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got []uevent.Event
	s.Drain(func(ev uevent.Event) {
		got = append(got, ev)
	})

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Action != uevent.ActionAdd || got[0].Subsystem != "input" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}

func TestDrain_ReturnsOnEAGAIN(t *testing.T) {
	s, writeFD := pipeSocket(t)
	defer s.Close()
	defer unix.Close(writeFD)

	count := 0
	s.Drain(func(uevent.Event) { count++ })

	if count != 0 {
		t.Fatalf("expected no events on empty pipe, got %d", count)
	}
}

func TestDrain_DropsOverflowMessage(t *testing.T) {
	s, writeFD := pipeSocket(t)
	defer s.Close()
	defer unix.Close(writeFD)

	big := make([]byte, uevent.MaxMessageLen)
	for i := range big {
		big[i] = 'a'
	}
	if _, err := unix.Write(writeFD, big); err != nil {
		t.Fatalf("write: %v", err)
	}

	count := 0
	s.Drain(func(uevent.Event) { count++ })

	if count != 0 {
		t.Fatalf("expected overflow message to be dropped, got %d events", count)
	}
}
