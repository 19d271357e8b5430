package events

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ueventd/ueventd/pkg/devnode"
	"github.com/ueventd/ueventd/pkg/uevent"
)

// subsystemBaseDirs is the subsystem-to-base-directory table from spec
// section 4.5. "usb" and "misc" are handled specially below since their
// target directory or node name depends on event content.
var subsystemBaseDirs = map[string]string{
	"graphics":   "/dev/graphics/",
	"drm":        "/dev/dri/",
	"oncrpc":     "/dev/oncrpc/",
	"adsp":       "/dev/adsp/",
	"msm_camera": "/dev/msm_camera/",
	"input":      "/dev/input/",
	"mtd":        "/dev/mtd/",
	"sound":      "/dev/snd/",
}

// handleGeneric implements handle_generic_device_event.
func (c *Context) handleGeneric(ev uevent.Event) {
	name := parseDeviceName(ev.Path, maxDeviceNameLen)
	if name == "" {
		return
	}

	if ev.Subsystem == "usb" {
		c.handleUSB(ev, name)
		return
	}
	// Other usb* subsystems (usb_device, usbmisc, ...) get no node.
	if strings.HasPrefix(ev.Subsystem, "usb") {
		return
	}

	base, ok := subsystemBaseDirs[ev.Subsystem]
	if !ok {
		if ev.Subsystem == "misc" && strings.HasPrefix(name, "log_") {
			base = "/dev/log/"
			name = name[len("log_"):]
		} else {
			base = "/dev/"
		}
	}
	if base != "/dev/" {
		if err := devnode.EnsureDir(base, 0755); err != nil {
			c.Logger.Warn("mkdir base dir failed", zap.String("dir", base), zap.Error(err))
		}
	}

	devPath := base + name
	links := c.characterDeviceSymlinks(ev)

	c.handleDevice(ev.Action, devPath, ev.Path, false, ev.Major, ev.Minor, links)
}

// handleUSB covers the "usb" subsystem special case: either honor the
// kernel-provided DEVNAME, or synthesize a devfs-style /dev/bus/usb path
// from the minor number, then apply any matching USB power-control rule.
func (c *Context) handleUSB(ev uevent.Event, name string) {
	devPath := usbDevPath(ev)
	if err := devnode.EnsureDir(parentDir(devPath), 0755); err != nil {
		c.Logger.Warn("mkdir usb dir failed", zap.String("dir", parentDir(devPath)), zap.Error(err))
	}

	links := c.characterDeviceSymlinks(ev)
	c.handleDevice(ev.Action, devPath, ev.Path, false, ev.Major, ev.Minor, links)

	c.applyUSBClassRule(ev, devPath)
}

// usbDevPath resolves a usb event's node path: the kernel-supplied DEVNAME
// when present, else a devfs-style bus/device pair synthesized from the
// minor number.
func usbDevPath(ev uevent.Event) string {
	if ev.DeviceName != "" {
		return "/dev/" + ev.DeviceName
	}
	return fmt.Sprintf("/dev/bus/usb/%03d/%03d", ev.Minor/128+1, ev.Minor%128+1)
}

// applyUSBClassRule implements handle_usb_device_class_rule: chown/chmod
// the node per the matching USB class rule, then push any requested
// power-control option into the device's sysfs power/control attribute.
func (c *Context) applyUSBClassRule(ev uevent.Event, devPath string) {
	if ev.Type == "" {
		return
	}

	rule, ok := c.Tables.USBClasses.Match(ev.Type)
	if !ok {
		return
	}

	if err := unix.Chown(devPath, int(rule.UID), int(rule.GID)); err != nil {
		c.Logger.Debug("usb class chown failed", zap.String("path", devPath), zap.Error(err))
	}
	if err := unix.Chmod(devPath, rule.Mode); err != nil {
		c.Logger.Debug("usb class chmod failed", zap.String("path", devPath), zap.Error(err))
	}

	if !rule.Options.SuspendAuto && !rule.Options.SuspendOn && !rule.Options.PwrCtrlPerm {
		return
	}

	sysfsPath := "/sys" + ev.Path + "/power/control"
	switch {
	case rule.Options.SuspendAuto:
		writeFile(sysfsPath, "auto")
	case rule.Options.SuspendOn:
		writeFile(sysfsPath, "on")
	}
	if rule.Options.PwrCtrlPerm {
		if err := unix.Chown(sysfsPath, int(rule.UID), int(rule.GID)); err != nil {
			c.Logger.Debug("usb power control chown failed", zap.String("path", sysfsPath), zap.Error(err))
		}
		if err := unix.Chmod(sysfsPath, rule.Mode); err != nil {
			c.Logger.Debug("usb power control chmod failed", zap.String("path", sysfsPath), zap.Error(err))
		}
	}
}

// characterDeviceSymlinks implements get_character_device_symlinks: a
// platform device below a "/usb" path segment gets a single
// /dev/usb/<subsystem><iface> symlink; everything else gets none.
func (c *Context) characterDeviceSymlinks(ev uevent.Event) []string {
	pdev, ok := c.Platform.Find(ev.Path)
	if !ok {
		return nil
	}

	rest := ev.Path[len(pdev.Path):]
	if !strings.HasPrefix(rest, "/usb") {
		return nil
	}

	// Skip the root hub name and the device, then take the interface
	// segment: rest looks like "/usb1/1-1/1-1:1.0/tty/ttyACM0", we want
	// "1-1:1.0". The interface must not be the final component — the
	// device node itself hangs below it.
	segs := strings.Split(strings.TrimPrefix(rest, "/"), "/")
	if len(segs) < 4 {
		return nil
	}
	iface := segs[2]

	return []string{fmt.Sprintf("/dev/usb/%s%s", ev.Subsystem, iface)}
}

func parentDir(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// writeFile best-effort writes value to a sysfs control attribute; a
// missing attribute (common on hardware without the matching power knob)
// is not an error worth surfacing.
func writeFile(path, value string) {
	_ = os.WriteFile(path, []byte(value), 0)
}
