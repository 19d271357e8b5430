// Package metrics exposes ueventd's Prometheus instrumentation, registered
// with promauto exactly as the donor's pkg/metrics does.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ueventd_events_processed_total",
		Help: "Total number of kernel uevents dispatched, by action.",
	}, []string{"action"})

	devicesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ueventd_devices_created_total",
		Help: "Total number of device nodes created.",
	})

	devicesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ueventd_devices_removed_total",
		Help: "Total number of device nodes removed.",
	})

	moduleLoadAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ueventd_module_load_attempts_total",
		Help: "Total number of module load attempts, by outcome.",
	}, []string{"outcome"})

	moduleDeferredQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ueventd_module_deferred_queue_depth",
		Help: "Current number of modaliases queued for deferred loading.",
	})

	firmwareTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ueventd_firmware_transfers_total",
		Help: "Total number of firmware transfer attempts, by outcome.",
	}, []string{"outcome"})

	coldbootDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ueventd_coldboot_duration_seconds",
		Help:    "Duration of the coldboot sysfs walk.",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordEventProcessed increments the per-action uevent counter.
func RecordEventProcessed(action string) {
	eventsProcessedTotal.WithLabelValues(action).Inc()
}

// RecordDeviceCreated increments the device-created counter.
func RecordDeviceCreated() {
	devicesCreatedTotal.Inc()
}

// RecordDeviceRemoved increments the device-removed counter.
func RecordDeviceRemoved() {
	devicesRemovedTotal.Inc()
}

// RecordModuleLoadAttempt increments the module load attempt counter for
// the given outcome ("success", "deferred", or "failed").
func RecordModuleLoadAttempt(outcome string) {
	moduleLoadAttemptsTotal.WithLabelValues(outcome).Inc()
}

// SetModuleDeferredQueueDepth sets the current deferred-queue gauge.
func SetModuleDeferredQueueDepth(depth int) {
	moduleDeferredQueueDepth.Set(float64(depth))
}

// RecordFirmwareTransfer increments the firmware transfer counter for the
// given outcome ("success", "failure", or "not_found").
func RecordFirmwareTransfer(outcome string) {
	firmwareTransfersTotal.WithLabelValues(outcome).Inc()
}

// ObserveColdbootDuration records one coldboot walk's wall-clock duration
// in seconds.
func ObserveColdbootDuration(seconds float64) {
	coldbootDurationSeconds.Observe(seconds)
}
