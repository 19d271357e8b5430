package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDevPerm, fileSysfsPerm and fileUSBClass mirror the YAML rule-file
// shape documented for this repo: a convenience on top of spec.md's
// intentionally undefined rule-file grammar.
type fileDevPerm struct {
	Path string `yaml:"path"`
	Mode uint32 `yaml:"mode"`
	UID  uint32 `yaml:"uid"`
	GID  uint32 `yaml:"gid"`
}

type fileSysfsPerm struct {
	Path     string `yaml:"path"`
	Attr     string `yaml:"attr"`
	Mode     uint32 `yaml:"mode"`
	UID      uint32 `yaml:"uid"`
	GID      uint32 `yaml:"gid"`
	Wildcard bool   `yaml:"wildcard"`
}

type fileUSBClass struct {
	Class   string `yaml:"class"`
	Mode    uint32 `yaml:"mode"`
	UID     uint32 `yaml:"uid"`
	GID     uint32 `yaml:"gid"`
	Options string `yaml:"options"`
}

type fileDocument struct {
	DevicePerms         []fileDevPerm   `yaml:"device_perms"`
	SysfsPerms          []fileSysfsPerm `yaml:"sysfs_perms"`
	USBClasses          []fileUSBClass  `yaml:"usb_classes"`
	ModuleBlacklistPath string          `yaml:"module_blacklist_path"`
	FirmwareDirs        []string        `yaml:"firmware_dirs"`
}

// Tables bundles the four rule tables populated by LoadFile, plus the
// scalar settings the rule file carries alongside them.
type Tables struct {
	Devices             *DeviceTable
	Sysfs               *SysfsTable
	USBClasses          *USBClassTable
	ModuleBlacklistPath string
	FirmwareDirs        []string
}

// NewTables returns an empty Tables with all sub-tables initialized.
func NewTables() *Tables {
	return &Tables{
		Devices:    NewDeviceTable(),
		Sysfs:      NewSysfsTable(),
		USBClasses: NewUSBClassTable(),
	}
}

// LoadFile parses the YAML rule file at path and populates a fresh Tables.
// Device-permission entries without an Attr go to the device table;
// entries with one go to the sysfs table, matching spec.md §4.3's
// "add_dev_perm appends to the sysfs table if attr is present, otherwise
// the device table" rule — expressed here as two separate YAML lists
// instead of one overloaded call, since the YAML format distinguishes them
// structurally.
func LoadFile(path string) (*Tables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}

	t := NewTables()
	for _, p := range doc.DevicePerms {
		t.Devices.Add(p.Path, p.Mode, p.UID, p.GID, containsGlobMeta(p.Path))
	}
	for _, s := range doc.SysfsPerms {
		t.Sysfs.Add(s.Path, s.Attr, s.Mode, s.UID, s.GID, s.Wildcard)
	}
	for _, c := range doc.USBClasses {
		t.USBClasses.Add(c.Class, c.Mode, c.UID, c.GID, c.Options)
	}
	t.ModuleBlacklistPath = doc.ModuleBlacklistPath
	t.FirmwareDirs = doc.FirmwareDirs

	return t, nil
}

func containsGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}
