// Package config loads, overrides and validates ueventd's daemon
// configuration: the YAML file on disk, environment variable overrides,
// and the structural checks that must pass before the daemon starts.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration, unmarshaled from
// config/ueventd.yaml.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Rules      RulesConfig      `yaml:"rules"`
	Firmware   FirmwareConfig   `yaml:"firmware"`
	Coldboot   ColdbootConfig   `yaml:"coldboot"`
	Netlink    NetlinkConfig    `yaml:"netlink"`
	Module     ModuleConfig     `yaml:"module"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	DBus       DBusConfig       `yaml:"dbus"`
}

// LoggingConfig controls pkg/logging.InitLogger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// RulesConfig points at the rule file pkg/rules.LoadFile parses.
type RulesConfig struct {
	FilePath string `yaml:"file_path"`
}

// FirmwareConfig controls pkg/firmware.Pump.
type FirmwareConfig struct {
	SearchDirs      []string `yaml:"search_dirs"`
	BootingSentinel string   `yaml:"booting_sentinel"`
}

// ColdbootConfig controls pkg/coldboot.Walker.
type ColdbootConfig struct {
	Roots      []string `yaml:"roots"`
	MarkerPath string   `yaml:"marker_path"`
}

// NetlinkConfig controls pkg/netlink.Open.
type NetlinkConfig struct {
	ReceiveBufferBytes int `yaml:"receive_buffer_bytes"`
}

// ModuleConfig controls pkg/module.Autoloader.
type ModuleConfig struct {
	HelperPath    string `yaml:"helper_path"`
	BlacklistPath string `yaml:"blacklist_path"`
}

// MonitoringConfig controls the optional Prometheus listener.
type MonitoringConfig struct {
	PrometheusPort int `yaml:"prometheus_port"`
}

// DBusConfig controls the optional pkg/dbusapi status service.
type DBusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BusName    string `yaml:"bus_name"`
	ObjectPath string `yaml:"object_path"`
}

// Default returns the configuration ueventd falls back to when no file is
// supplied, matching the fixed constants the donor codebase carries.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Production: true},
		Rules:   RulesConfig{FilePath: "/system/etc/ueventd.yaml"},
		Firmware: FirmwareConfig{
			SearchDirs:      []string{"/etc/firmware", "/vendor/firmware", "/firmware/image"},
			BootingSentinel: "/dev/.booting",
		},
		Coldboot: ColdbootConfig{
			Roots:      []string{"/sys/class", "/sys/block", "/sys/devices"},
			MarkerPath: "/dev/.coldboot_done",
		},
		Netlink: NetlinkConfig{ReceiveBufferBytes: 1024 * 1024},
		Module:  ModuleConfig{HelperPath: "modprobe", BlacklistPath: "/system/etc/ueventd.modules.blacklist"},
		DBus:    DBusConfig{Enabled: true, BusName: "org.ueventd.Manager", ObjectPath: "/org/ueventd/Manager"},
	}
}

// Load reads and unmarshals the YAML config at path onto a fresh
// Default(), so that any field the file omits keeps its default.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
