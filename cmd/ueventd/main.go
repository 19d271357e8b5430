package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/config"
	"github.com/ueventd/ueventd/pkg/dbusapi"
	"github.com/ueventd/ueventd/pkg/logging"
	"github.com/ueventd/ueventd/pkg/ueventd"
)

var (
	configPath = flag.String("config", "config/ueventd.yaml", "Path to configuration file")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error) - overrides config")
)

func main() {
	flag.Parse()

	if err := logging.InitLogger("info", false); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Logger.Info("starting ueventd", zap.String("config_path", *configPath))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	config.ApplyEnvOverrides(cfg)

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
		logging.Logger.Info("log level overridden by CLI flag", zap.String("log_level", *logLevel))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logging.Logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := logging.InitLogger(cfg.Logging.Level, cfg.Logging.Production); err != nil {
		logging.Logger.Error("failed to reconfigure logger", zap.Error(err))
	}

	mgr, err := ueventd.New(cfg, logging.Logger)
	if err != nil {
		logging.Logger.Fatal("failed to initialize ueventd", zap.Error(err))
	}
	defer mgr.Close()

	if cfg.Monitoring.PrometheusPort != 0 {
		startMetricsServer(cfg.Monitoring.PrometheusPort)
	}

	var dbusSvc *dbusapi.Service
	if cfg.DBus.Enabled {
		dbusSvc = startDBusService(mgr, cfg)
	}

	logging.Logger.Info("running coldboot")
	if err := mgr.Coldboot(); err != nil {
		logging.Logger.Warn("coldboot failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	logging.Logger.Info("entering event loop")
	if err := mgr.Run(ctx); err != nil {
		logging.Logger.Error("event loop exited with error", zap.Error(err))
	}

	if dbusSvc != nil {
		dbusSvc.Stop()
	}
	logging.Logger.Info("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		logging.Logger.Warn("failed to load config file, falling back to defaults",
			zap.String("path", path), zap.Error(err))
		return config.Default(), nil
	}
	return cfg, nil
}

func startMetricsServer(port int) {
	addr := fmt.Sprintf(":%d", port)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logging.Logger.Info("prometheus metrics listening", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logging.Logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func startDBusService(mgr *ueventd.Manager, cfg *config.Config) *dbusapi.Service {
	svc, err := dbusapi.New(dbusapi.Deps{
		Maker:           mgr.Maker(),
		Platform:        mgr.Platform(),
		Tables:          mgr.Tables(),
		Autoloader:      mgr.Autoloader(),
		TriggerColdboot: mgr.TriggerColdboot,
	}, cfg.DBus.BusName, cfg.DBus.ObjectPath, logging.Logger)
	if err != nil {
		logging.Logger.Warn("D-Bus service unavailable", zap.Error(err))
		return nil
	}
	if err := svc.Start(); err != nil {
		logging.Logger.Warn("D-Bus service failed to start", zap.Error(err))
		return nil
	}
	logging.Logger.Info("D-Bus status service started", zap.String("bus_name", cfg.DBus.BusName))
	return svc
}
