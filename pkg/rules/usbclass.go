package rules

import (
	"strings"
	"sync"
)

// USBClassTable is the USB device-class power-control table from spec
// section 4.3.
type USBClassTable struct {
	mu    sync.RWMutex
	rules []USBClassRule
}

// NewUSBClassTable returns an empty USB-class table.
func NewUSBClassTable() *USBClassTable {
	return &USBClassTable{}
}

// ParseUSBOptions splits the free-form options string on whitespace/commas
// and recognizes the three substrings the donor understands.
func ParseUSBOptions(options string) USBPowerOptions {
	var opts USBPowerOptions
	for _, tok := range strings.FieldsFunc(options, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		switch tok {
		case "suspend_auto":
			opts.SuspendAuto = true
		case "suspend_on":
			opts.SuspendOn = true
		case "pwr_ctrl_perm":
			opts.PwrCtrlPerm = true
		}
	}
	return opts
}

// Add appends a USB class rule, parsing options via ParseUSBOptions.
func (t *USBClassTable) Add(class string, mode, uid, gid uint32, options string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, USBClassRule{
		Class:   class,
		Mode:    mode,
		UID:     uid,
		GID:     gid,
		Options: ParseUSBOptions(options),
	})
}

// Match returns the first rule whose class glob-matches devClass, scanning
// in reverse insertion order for the same override-friendliness as
// DeviceTable.
func (t *USBClassTable) Match(devClass string) (USBClassRule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.rules) - 1; i >= 0; i-- {
		if matches(t.rules[i].Class, devClass, true) {
			return t.rules[i], true
		}
	}
	return USBClassRule{}, false
}

// Len reports how many rules are loaded, for status reporting.
func (t *USBClassTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}
