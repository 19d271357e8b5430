package config

import "fmt"

// ValidateConfig runs a sequential set of structural checks over cfg,
// returning the first one that fails, matching the donor's
// fail-on-first-error validation style.
func ValidateConfig(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", cfg.Logging.Level)
	}

	if cfg.Rules.FilePath == "" {
		return fmt.Errorf("rules.file_path must not be empty")
	}

	if len(cfg.Firmware.SearchDirs) == 0 {
		return fmt.Errorf("firmware.search_dirs must list at least one directory")
	}
	if cfg.Firmware.BootingSentinel == "" {
		return fmt.Errorf("firmware.booting_sentinel must not be empty")
	}

	if len(cfg.Coldboot.Roots) == 0 {
		return fmt.Errorf("coldboot.roots must list at least one root")
	}
	if cfg.Coldboot.MarkerPath == "" {
		return fmt.Errorf("coldboot.marker_path must not be empty")
	}

	if cfg.Netlink.ReceiveBufferBytes <= 0 {
		return fmt.Errorf("netlink.receive_buffer_bytes must be positive, got %d", cfg.Netlink.ReceiveBufferBytes)
	}

	if cfg.Module.HelperPath == "" {
		return fmt.Errorf("module.helper_path must not be empty")
	}
	if cfg.Module.BlacklistPath == "" {
		return fmt.Errorf("module.blacklist_path must not be empty")
	}

	if cfg.Monitoring.PrometheusPort < 0 || cfg.Monitoring.PrometheusPort > 65535 {
		return fmt.Errorf("monitoring.prometheus_port out of range: %d", cfg.Monitoring.PrometheusPort)
	}

	if cfg.DBus.Enabled {
		if cfg.DBus.BusName == "" {
			return fmt.Errorf("dbus.bus_name must not be empty when dbus.enabled is true")
		}
		if cfg.DBus.ObjectPath == "" {
			return fmt.Errorf("dbus.object_path must not be empty when dbus.enabled is true")
		}
	}

	return nil
}
