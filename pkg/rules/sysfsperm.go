package rules

import "sync"

// SysfsMatch is a resolved sysfs-permission hit: the full attribute path to
// chown/chmod/label, plus the permission triple to apply.
type SysfsMatch struct {
	Path string
	Mode uint32
	UID  uint32
	GID  uint32
}

// SysfsTable is the sysfs attribute permission table from spec section 4.3.
// Unlike DeviceTable it is scanned in forward (insertion) order: spec.md
// §4.3 says so explicitly, since sysfs rules are not meant to be overridden
// the way device-node defaults are.
type SysfsTable struct {
	mu    sync.RWMutex
	rules []SysfsPermRule
}

// NewSysfsTable returns an empty sysfs-permission table.
func NewSysfsTable() *SysfsTable {
	return &SysfsTable{}
}

// Add appends a rule. name is matched against the uevent DEVPATH with any
// "/sys" prefix already stripped, matching how the donor stores its pattern
// table.
func (t *SysfsTable) Add(name, attr string, mode, uid, gid uint32, wildcard bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, SysfsPermRule{Name: name, Attr: attr, Mode: mode, UID: uid, GID: gid, Wildcard: wildcard})
}

// Match returns every rule matching upath, in forward insertion order, each
// resolved to the full "/sys<upath>/<attr>" path it governs.
func (t *SysfsTable) Match(upath string) []SysfsMatch {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []SysfsMatch
	for _, r := range t.rules {
		if matches(r.Name, upath, r.Wildcard) {
			out = append(out, SysfsMatch{
				Path: "/sys" + upath + "/" + r.Attr,
				Mode: r.Mode,
				UID:  r.UID,
				GID:  r.GID,
			})
		}
	}
	return out
}

// Len reports how many rules are loaded, for status reporting.
func (t *SysfsTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}
