// Package rules holds the policy tables ueventd consults when it
// materializes device nodes: device-node permissions, sysfs attribute
// permissions, USB power-control classes, and the registry of platform
// devices used to resolve block-device symlinks.
package rules

// DevPermRule is one entry of the device-node permission table.
type DevPermRule struct {
	Name     string
	Mode     uint32
	UID      uint32
	GID      uint32
	Wildcard bool
}

// SysfsPermRule is one entry of the sysfs attribute permission table. Attr
// names the attribute file below each matched path; in the donor format's
// single `add_dev_perm` entry point its presence is what distinguishes a
// sysfs rule from a device rule. SysfsTable.Add does not check that Attr is
// non-empty.
type SysfsPermRule struct {
	Name     string
	Attr     string
	Mode     uint32
	UID      uint32
	GID      uint32
	Wildcard bool
}

// USBPowerOptions are the substrings the donor parses out of a USB class
// rule's free-form options string.
type USBPowerOptions struct {
	SuspendAuto bool
	SuspendOn   bool
	PwrCtrlPerm bool
}

// USBClassRule is one entry of the USB device-class power-control table.
type USBClassRule struct {
	Class   string
	Mode    uint32
	UID     uint32
	GID     uint32
	Options USBPowerOptions
}
