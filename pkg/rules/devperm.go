package rules

import "sync"

// defaultDevMode, defaultDevUID and defaultDevGID are returned by
// DeviceTable.Lookup when nothing in the table matches a path, matching the
// donor's hardcoded fallback of 0600/root/root.
const (
	defaultDevMode uint32 = 0600
	defaultDevUID  uint32 = 0
	defaultDevGID  uint32 = 0
)

// DeviceTable is the device-node permission table from spec section 4.3. It
// is append-only and scanned in reverse insertion order so later-loaded
// rules (e.g. board-specific overrides loaded after generic ones) win over
// earlier ones.
type DeviceTable struct {
	mu    sync.RWMutex
	rules []DevPermRule
}

// NewDeviceTable returns an empty device-permission table.
func NewDeviceTable() *DeviceTable {
	return &DeviceTable{}
}

// Add appends a rule to the table.
func (t *DeviceTable) Add(name string, mode, uid, gid uint32, wildcard bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, DevPermRule{Name: name, Mode: mode, UID: uid, GID: gid, Wildcard: wildcard})
}

// Lookup scans the table in reverse insertion order and returns the first
// matching rule's mode/uid/gid, or the documented default when nothing
// matches.
func (t *DeviceTable) Lookup(devPath string) (mode, uid, gid uint32) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.rules) - 1; i >= 0; i-- {
		r := t.rules[i]
		if matches(r.Name, devPath, r.Wildcard) {
			return r.Mode, r.UID, r.GID
		}
	}
	return defaultDevMode, defaultDevUID, defaultDevGID
}

// Len reports how many rules are loaded, for status reporting.
func (t *DeviceTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}
