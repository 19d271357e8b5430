package events

import "github.com/ueventd/ueventd/pkg/uevent"

// handlePlatform implements handle_platform_device_event: register the
// path on add, unregister it by exact match on remove.
func (c *Context) handlePlatform(ev uevent.Event) {
	switch ev.Action {
	case uevent.ActionAdd:
		c.Platform.Register(ev.Path)
	case uevent.ActionRemove:
		c.Platform.Unregister(ev.Path)
	}
}
