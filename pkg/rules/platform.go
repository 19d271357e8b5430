package rules

import "strings"

// PlatformDevice is a registered platform device: the full sysfs path it
// was registered under, and the canonical "name" derived from it by
// stripping the "/devices/" and, if present, "platform/" prefixes.
type PlatformDevice struct {
	Path string
	Name string
}

// PlatformRegistry tracks live platform devices for symlink resolution in
// the block and generic uevent handlers (spec section 4.5). Entries are
// kept in insertion order and searched from most-recently-added backward,
// so a newly registered device always shadows a shorter, earlier prefix.
type PlatformRegistry struct {
	devices []PlatformDevice
}

// NewPlatformRegistry returns an empty registry.
func NewPlatformRegistry() *PlatformRegistry {
	return &PlatformRegistry{}
}

// Register adds path unless it is a strict subdevice of an already
// registered platform device, in which case it is ignored (the donor's
// "subdevice of an existing platform, ignore it" rule). Returns the
// PlatformDevice added, or the zero value and false if it was rejected.
func (r *PlatformRegistry) Register(path string) (PlatformDevice, bool) {
	for i := len(r.devices) - 1; i >= 0; i-- {
		bus := r.devices[i]
		if len(bus.Path) < len(path) && path[len(bus.Path)] == '/' && strings.HasPrefix(path, bus.Path) {
			return PlatformDevice{}, false
		}
	}

	name := path
	if strings.HasPrefix(name, "/devices/") {
		name = name[len("/devices/"):]
		if strings.HasPrefix(name, "platform/") {
			name = name[len("platform/"):]
		}
	}

	dev := PlatformDevice{Path: path, Name: name}
	r.devices = append(r.devices, dev)
	return dev, true
}

// Unregister removes the platform device registered under the exact path,
// if any.
func (r *PlatformRegistry) Unregister(path string) {
	for i := len(r.devices) - 1; i >= 0; i-- {
		if r.devices[i].Path == path {
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			return
		}
	}
}

// Find returns the platform device that path is a strict subdevice of,
// searching most-recently-registered first.
func (r *PlatformRegistry) Find(path string) (PlatformDevice, bool) {
	for i := len(r.devices) - 1; i >= 0; i-- {
		bus := r.devices[i]
		if len(bus.Path) < len(path) && path[len(bus.Path)] == '/' && strings.HasPrefix(path, bus.Path) {
			return bus, true
		}
	}
	return PlatformDevice{}, false
}

// Len reports how many platform devices are currently registered.
func (r *PlatformRegistry) Len() int {
	return len(r.devices)
}

// List returns every currently registered platform device, in
// registration order.
func (r *PlatformRegistry) List() []PlatformDevice {
	out := make([]PlatformDevice, len(r.devices))
	copy(out, r.devices)
	return out
}
