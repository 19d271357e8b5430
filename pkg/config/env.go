package config

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/logging"
)

// envPrefix is the prefix every recognized override variable carries.
const envPrefix = "UEVENTD_"

// ApplyEnvOverrides reads UEVENTD_* environment variables and applies them
// onto cfg, logging each override it makes. Unset variables leave the
// existing value untouched; malformed numeric values are logged and
// skipped rather than aborting the whole pass.
func ApplyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		logging.Info("env override", zap.String("field", "logging.level"), zap.String("value", v))
		cfg.Logging.Level = v
	}
	if v, ok := lookupEnvBool("LOG_PRODUCTION"); ok {
		cfg.Logging.Production = v
	}
	if v, ok := lookupEnv("RULES_FILE_PATH"); ok {
		logging.Info("env override", zap.String("field", "rules.file_path"), zap.String("value", v))
		cfg.Rules.FilePath = v
	}
	if v, ok := lookupEnv("FIRMWARE_SEARCH_DIRS"); ok {
		dirs := strings.Split(v, ":")
		logging.Info("env override", zap.String("field", "firmware.search_dirs"), zap.Strings("value", dirs))
		cfg.Firmware.SearchDirs = dirs
	}
	if v, ok := lookupEnv("COLDBOOT_MARKER_PATH"); ok {
		logging.Info("env override", zap.String("field", "coldboot.marker_path"), zap.String("value", v))
		cfg.Coldboot.MarkerPath = v
	}
	if v, ok := lookupEnvInt("NETLINK_RECEIVE_BUFFER_BYTES"); ok {
		cfg.Netlink.ReceiveBufferBytes = v
	}
	if v, ok := lookupEnv("MODULE_HELPER_PATH"); ok {
		logging.Info("env override", zap.String("field", "module.helper_path"), zap.String("value", v))
		cfg.Module.HelperPath = v
	}
	if v, ok := lookupEnv("MODULE_BLACKLIST_PATH"); ok {
		logging.Info("env override", zap.String("field", "module.blacklist_path"), zap.String("value", v))
		cfg.Module.BlacklistPath = v
	}
	if v, ok := lookupEnvInt("MONITORING_PROMETHEUS_PORT"); ok {
		cfg.Monitoring.PrometheusPort = v
	}
	if v, ok := lookupEnvBool("DBUS_ENABLED"); ok {
		cfg.DBus.Enabled = v
	}
	if v, ok := lookupEnv("DBUS_BUS_NAME"); ok {
		logging.Info("env override", zap.String("field", "dbus.bus_name"), zap.String("value", v))
		cfg.DBus.BusName = v
	}
}

func lookupEnv(name string) (string, bool) {
	return os.LookupEnv(envPrefix + name)
}

func lookupEnvInt(name string) (int, bool) {
	raw, ok := lookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logging.Warn("invalid integer env override", zap.String("variable", envPrefix+name), zap.String("value", raw), zap.Error(err))
		return 0, false
	}
	logging.Info("env override", zap.String("field", name), zap.Int("value", n))
	return n, true
}

func lookupEnvBool(name string) (bool, bool) {
	raw, ok := lookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		logging.Warn("invalid boolean env override", zap.String("variable", envPrefix+name), zap.String("value", raw), zap.Error(err))
		return false, false
	}
	logging.Info("env override", zap.String("field", name), zap.Bool("value", b))
	return b, true
}
