//go:build linux

// Package netlink opens the kernel's uevent multicast socket and drains it
// without blocking, handing each raw message to a caller-supplied handler.
package netlink

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ueventd/ueventd/pkg/logging"
	"github.com/ueventd/ueventd/pkg/uevent"
)

// netlinkKObjectUevent is NETLINK_KOBJECT_UEVENT; the kernel does not expose
// it via golang.org/x/sys/unix because it is specific to this one socket
// family's use.
const netlinkKObjectUevent = 15

// kernelBroadcastGroup is the multicast group the kernel publishes uevents
// on.
const kernelBroadcastGroup = 1

// DefaultReceiveBuffer mirrors the "is 1MB enough? udev uses 16MB!" comment
// in the original devices.c: 1 MiB is the documented floor.
const DefaultReceiveBuffer = 1024 * 1024

// Socket is a non-blocking AF_NETLINK/NETLINK_KOBJECT_UEVENT socket bound to
// the kernel's broadcast group.
type Socket struct {
	fd     int
	mu     sync.Mutex
	buf    [uevent.MaxMessageLen + 2]byte
	logger *zap.Logger
}

// Open creates and binds the uevent socket, requesting rcvBufBytes of
// kernel receive buffer (falling back to the unprivileged option if the
// privileged SO_RCVBUFFORCE call is refused), and sets it non-blocking and
// close-on-exec.
func Open(rcvBufBytes int, logger *zap.Logger) (*Socket, error) {
	if logger == nil {
		logger = logging.Logger
	}
	if rcvBufBytes <= 0 {
		rcvBufBytes = DefaultReceiveBuffer
	}

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, netlinkKObjectUevent)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelBroadcastGroup}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, rcvBufBytes); err != nil {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufBytes); err != nil {
			logger.Warn("failed to size netlink receive buffer", zap.Error(err))
		}
	}

	return &Socket{fd: fd, logger: logger}, nil
}

// Close releases the underlying file descriptor.
func (s *Socket) Close() error {
	if s == nil || s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

// FD returns the raw file descriptor, e.g. for poking it into an external
// poll loop or for tests that want to select/poll on it directly.
func (s *Socket) FD() int {
	return s.fd
}

// Drain reads every message currently queued on the socket without
// blocking, parses each into a uevent.Event, and passes it to handler. It
// returns when the next read would block (EAGAIN) or fails. Messages at or
// above uevent.MaxMessageLen are the kernel-documented overflow case and are
// silently discarded rather than parsed.
//
// Drain has two callers in a running daemon: the reader goroutine's poll
// loop and the coldboot interleave on the event loop. The mutex keeps the
// shared receive buffer single-user when those overlap; whichever caller
// loses the race simply finds the socket already empty.
func (s *Socket) Drain(handler func(uevent.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		n, err := unix.Read(s.fd, s.buf[:uevent.MaxMessageLen])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.logger.Warn("netlink read failed", zap.Error(err))
			return
		}
		if n <= 0 {
			return
		}
		if n >= uevent.MaxMessageLen {
			s.logger.Warn("uevent message overflow, dropping", zap.Int("len", n))
			continue
		}

		s.buf[n] = 0
		s.buf[n+1] = 0

		handler(uevent.Parse(s.buf[:n]))
	}
}
