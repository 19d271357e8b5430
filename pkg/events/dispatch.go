package events

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/devnode"
	"github.com/ueventd/ueventd/pkg/metrics"
	"github.com/ueventd/ueventd/pkg/uevent"
)

// Dispatch implements spec section 4.5's top-level routing:
//  1. an "add" action feeds the module autoloader,
//  2. an "add" or "change" action gets sysfs permissions applied,
//  3. the event is routed by subsystem prefix to the block, platform or
//     generic handler,
//  4. an "add" on the firmware subsystem is handed to the firmware pump.
func (c *Context) Dispatch(ev uevent.Event) {
	if ev.Action == uevent.ActionAdd && c.Modules != nil {
		c.Modules.Trigger(ev.Modalias)
	}

	if ev.Action == uevent.ActionAdd || ev.Action == uevent.ActionChange {
		devnode.ApplySysfsPerms(c.Tables.Sysfs, c.Maker.Labeler, c.Logger, ev.Path)
	}

	switch {
	case strings.HasPrefix(ev.Subsystem, "block"):
		c.handleBlock(ev)
	case strings.HasPrefix(ev.Subsystem, "platform"):
		c.handlePlatform(ev)
	default:
		c.handleGeneric(ev)
	}

	if ev.Subsystem == "firmware" && ev.Action == uevent.ActionAdd && c.Firmware != nil {
		c.Firmware.Handle(ev.Path, ev.Firmware)
	}
}

// handleDevice implements handle_device: create or remove the node itself,
// then walk every symlink the caller resolved for it.
func (c *Context) handleDevice(action uevent.Action, devPath, sysPath string, isBlock bool, major, minor int, links []string) {
	switch action {
	case uevent.ActionAdd:
		if major >= 0 && minor >= 0 {
			if err := c.Maker.MakeDevice(devPath, sysPath, isBlock, major, minor); err != nil {
				c.Logger.Warn("make device failed", zap.String("path", devPath), zap.Error(err))
			} else {
				metrics.RecordDeviceCreated()
			}
		}
		for _, link := range links {
			if err := devnode.MakeLink(devPath, link); err != nil {
				c.Logger.Warn("make link failed", zap.String("link", link), zap.Error(err))
			}
		}
	case uevent.ActionRemove:
		for _, link := range links {
			if err := devnode.RemoveLink(devPath, link); err != nil {
				c.Logger.Warn("remove link failed", zap.String("link", link), zap.Error(err))
			}
		}
		if major >= 0 && minor >= 0 {
			if err := devnode.Unlink(devPath, major, minor); err != nil {
				c.Logger.Warn("unlink failed", zap.String("path", devPath), zap.Error(err))
			} else {
				metrics.RecordDeviceRemoved()
			}
			c.Maker.Forget(devPath)
		}
	}
}

// sanitize replaces any byte outside [0-9a-zA-Z_-.] with '_', matching the
// donor's partition-name sanitizer used before building a by-name symlink.
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
