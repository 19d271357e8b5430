package events

import (
	"fmt"
	"path"
	"strings"

	"github.com/ueventd/ueventd/pkg/uevent"
)

const blockDeviceBaseDir = "/dev/block/"

// maxDeviceNameLen mirrors the donor's 64-byte stack buffer cap on a parsed
// device name; anything longer is rejected rather than truncated.
const maxDeviceNameLen = 64

// handleBlock implements handle_block_device_event: derive the block
// device's basename, resolve the platform/PCI symlink set, and create or
// remove the node and its links.
func (c *Context) handleBlock(ev uevent.Event) {
	name := parseDeviceName(ev.Path, maxDeviceNameLen)
	if name == "" {
		return
	}

	devPath := blockDeviceBaseDir + name

	var links []string
	if strings.HasPrefix(ev.Path, "/devices/") {
		links = c.platformBlockSymlinks(ev, name)
	}

	c.handleDevice(ev.Action, devPath, ev.Path, true, ev.Major, ev.Minor, links)
}

// parseDeviceName implements parse_device_name: the basename of the sysfs
// path, rejected if it would overrun a maxLen-byte buffer.
func parseDeviceName(devPath string, maxLen int) string {
	idx := strings.LastIndexByte(devPath, '/')
	if idx < 0 {
		return ""
	}
	name := devPath[idx+1:]
	if len(name) > maxLen {
		return ""
	}
	return name
}

// platformBlockSymlinks implements parse_platform_block_device: resolve
// the owning platform device's canonical name (or a two-segment PCI path
// fallback), then build up to three symlinks from it.
func (c *Context) platformBlockSymlinks(ev uevent.Event, basename string) []string {
	var device string
	if pdev, ok := c.Platform.Find(ev.Path); ok {
		device = pdev.Name
	} else if strings.HasPrefix(ev.Path, "/devices/pci") {
		d, ok := pciDeviceSegment(ev.Path)
		if !ok {
			return nil
		}
		device = d
	} else {
		return nil
	}

	linkBase := blockDeviceBaseDir + "platform/" + device

	var links []string
	if ev.PartitionName != "" {
		sanitized := sanitize(ev.PartitionName)
		links = append(links, fmt.Sprintf("%s/by-name/%s", linkBase, sanitized))
	}
	if ev.PartitionNum >= 0 {
		links = append(links, fmt.Sprintf("%s/by-num/p%d", linkBase, ev.PartitionNum))
	}
	links = append(links, linkBase+"/"+basename)

	return links
}

// pciDeviceSegment extracts the two leading path segments after
// "/devices/" (the PCI domain/bus and the peripheral ID), e.g.
// "pci0000:00/0000:00:1f.2" from "/devices/pci0000:00/0000:00:1f.2/...".
func pciDeviceSegment(devPath string) (string, bool) {
	rest := devPath[len("/devices/"):]
	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		return "", false
	}
	return path.Join(parts[0], parts[1]), true
}
