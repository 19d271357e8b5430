// Package ueventd wires the rule tables, device materializer, event router,
// module autoloader, firmware pump, and coldboot walker into a single
// process-scoped Manager, replacing the donor's package-level globals with
// an explicit struct so a test (or a future embedder) can run more than one
// instance without state bleeding between them.
package ueventd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ueventd/ueventd/pkg/coldboot"
	"github.com/ueventd/ueventd/pkg/config"
	"github.com/ueventd/ueventd/pkg/devnode"
	"github.com/ueventd/ueventd/pkg/events"
	"github.com/ueventd/ueventd/pkg/firmware"
	"github.com/ueventd/ueventd/pkg/metrics"
	"github.com/ueventd/ueventd/pkg/module"
	"github.com/ueventd/ueventd/pkg/netlink"
	"github.com/ueventd/ueventd/pkg/rules"
	"github.com/ueventd/ueventd/pkg/uevent"
)

// pollTimeoutMillis bounds how long the reader goroutine blocks in a single
// poll(2) call, so it notices context cancellation promptly.
const pollTimeoutMillis = 250

// Manager owns every collaborator a running ueventd process needs: the
// netlink socket, rule tables, device materializer, event router, module
// autoloader, firmware pump, and coldboot walker.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	sock       *netlink.Socket
	tables     *rules.Tables
	platform   *rules.PlatformRegistry
	maker      *devnode.Maker
	autoloader *module.Autoloader
	pump       *firmware.Pump
	walker     *coldboot.Walker
	router     *events.Context

	coldbootRequests chan chan error
	requestTimeout   time.Duration
}

// New constructs a Manager from cfg: it loads the rule file (falling back to
// empty tables with a warning if that fails), opens the netlink socket, and
// wires the coldboot walker's poke callback to drain that same socket, as
// spec section 4.8 requires.
func New(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tables := rules.NewTables()
	if cfg.Rules.FilePath != "" {
		loaded, err := rules.LoadFile(cfg.Rules.FilePath)
		if err != nil {
			logger.Warn("failed to load rule file, starting with empty tables",
				zap.String("path", cfg.Rules.FilePath), zap.Error(err))
		} else {
			tables = loaded
		}
	}

	platform := rules.NewPlatformRegistry()
	maker := devnode.NewMaker(tables.Devices, devnode.NoopLabeler)

	// The rule file may carry its own blacklist path and firmware search
	// dirs; when it does, those take precedence over the daemon config.
	blacklistPath := cfg.Module.BlacklistPath
	if tables.ModuleBlacklistPath != "" {
		blacklistPath = tables.ModuleBlacklistPath
	}
	searchDirs := cfg.Firmware.SearchDirs
	if len(tables.FirmwareDirs) > 0 {
		searchDirs = tables.FirmwareDirs
	}

	resolver := module.NewExecResolver(cfg.Module.HelperPath)
	autoloader := module.NewAutoloader(resolver, blacklistPath)

	pump := firmware.NewPump(searchDirs)
	if cfg.Firmware.BootingSentinel != "" {
		pump.BootingSentinel = cfg.Firmware.BootingSentinel
	}

	router := events.NewContext(maker, tables, platform, autoloader, pump, logger)

	sock, err := netlink.Open(cfg.Netlink.ReceiveBufferBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("open netlink socket: %w", err)
	}

	m := &Manager{
		cfg:              cfg,
		logger:           logger,
		sock:             sock,
		tables:           tables,
		platform:         platform,
		maker:            maker,
		autoloader:       autoloader,
		pump:             pump,
		router:           router,
		coldbootRequests: make(chan chan error, 1),
		requestTimeout:   5 * time.Second,
	}
	// The poke callback drains and dispatches inline. Coldboot only ever
	// runs on the goroutine that also owns dispatch (startup, or the
	// event loop servicing a TriggerColdboot request), so the rule tables
	// and device registry stay single-writer; Socket.Drain itself is
	// serialized against the reader goroutine's concurrent drains.
	m.walker = coldboot.NewWalker(cfg.Coldboot.Roots, cfg.Coldboot.MarkerPath, func() {
		sock.Drain(router.Dispatch)
	})

	return m, nil
}

// Tables returns the loaded rule tables, for status reporting.
func (m *Manager) Tables() *rules.Tables { return m.tables }

// Platform returns the platform device registry, for status reporting.
func (m *Manager) Platform() *rules.PlatformRegistry { return m.platform }

// Maker returns the device materializer, for status reporting.
func (m *Manager) Maker() *devnode.Maker { return m.maker }

// Autoloader returns the module autoloader, for status reporting.
func (m *Manager) Autoloader() *module.Autoloader { return m.autoloader }

// Coldboot runs the coldboot walk once, synchronously, without going
// through the event loop's work queue. Callers that run concurrently with
// Run must use TriggerColdboot instead.
func (m *Manager) Coldboot() error {
	start := time.Now()
	err := m.walker.Run()
	metrics.ObserveColdbootDuration(time.Since(start).Seconds())
	return err
}

// TriggerColdboot enqueues a coldboot re-run onto the running event loop and
// blocks until it completes, so a concurrently running D-Bus goroutine never
// touches rule tables or the device registry directly (spec section 5).
func (m *Manager) TriggerColdboot() error {
	reply := make(chan error, 1)
	select {
	case m.coldbootRequests <- reply:
	case <-time.After(m.requestTimeout):
		return fmt.Errorf("coldboot request queue full")
	}
	return <-reply
}

// Run drains netlink events and dispatches them until ctx is canceled. It is
// the single-threaded event loop spec section 5 describes: the netlink
// reader goroutine only parses and forwards events, never touching rule
// tables or the device registry itself. Dispatch — including the inline
// dispatch a coldboot re-run performs — happens exclusively on this
// goroutine; events the reader forwards while a coldboot is in flight just
// queue on eventsCh until the loop comes back around.
func (m *Manager) Run(ctx context.Context) error {
	eventsCh := make(chan uevent.Event, 64)
	go m.readLoop(ctx, eventsCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-eventsCh:
			m.router.Dispatch(ev)
			metrics.RecordEventProcessed(string(ev.Action))
			metrics.SetModuleDeferredQueueDepth(m.autoloader.DeferredCount())
		case reply := <-m.coldbootRequests:
			reply <- m.rerunColdboot()
		}
	}
}

// rerunColdboot serves a TriggerColdboot request: it removes the marker an
// earlier walk left behind, so the walk runs again instead of being
// skipped, then runs it.
func (m *Manager) rerunColdboot() error {
	if err := os.Remove(m.walker.MarkerPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return m.Coldboot()
}

func (m *Manager) readLoop(ctx context.Context, eventsCh chan<- uevent.Event) {
	fds := []unix.PollFd{{Fd: int32(m.sock.FD()), Events: unix.POLLIN}}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			m.logger.Error("netlink poll failed", zap.Error(err))
			continue
		}
		if n == 0 {
			continue
		}

		// Forward outside Drain so the socket lock is not held while waiting
		// on eventsCh: a coldboot re-run on the event loop drains the same
		// socket.
		var batch []uevent.Event
		m.sock.Drain(func(ev uevent.Event) {
			batch = append(batch, ev)
		})
		for _, ev := range batch {
			select {
			case eventsCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close releases the netlink socket.
func (m *Manager) Close() error {
	return m.sock.Close()
}
