// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for plugin load metrics.
const (
	LoadStatusLoaded   = "loaded"
	LoadStatusInactive = "inactive"
	LoadStatusFailed   = "failed"
)

// Status constants for hook execution metrics.
const (
	ExecStatusOK    = "ok"
	ExecStatusError = "error"
	ExecStatusPanic = "panic"
)

// PluginLoads is the counter for plugin load attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var PluginLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envstudio_plugin_loads_total",
		Help: "Total number of plugin load attempts",
	},
	[]string{"plugin", "status"},
)

// PluginsLoaded is the gauge for currently loaded plugins.
// Use RegisterMetrics to register this with a Prometheus registry.
var PluginsLoaded = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "envstudio_plugins_loaded",
		Help: "Number of currently loaded plugins, including inactive ones",
	},
)

// HookExecutions is the counter for per-plugin hook executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var HookExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envstudio_hook_executions_total",
		Help: "Total number of per-plugin hook executions",
	},
	[]string{"hook", "plugin", "status"},
)

// HookDuration is the histogram for per-plugin hook execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var HookDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "envstudio_hook_duration_seconds",
		Help:    "Per-plugin hook execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"hook", "plugin"},
)

// RegisterMetrics registers plugin package metrics with the given Prometheus registry.
// This must be called at startup to make metrics available on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(PluginLoads)
	reg.MustRegister(PluginsLoaded)
	reg.MustRegister(HookExecutions)
	reg.MustRegister(HookDuration)
}

// RecordPluginLoad increments the plugin load counter.
// Parameters:
//   - plugin: the plugin name that was loaded
//   - status: load result (use LoadStatus* constants)
func RecordPluginLoad(plugin, status string) {
	PluginLoads.WithLabelValues(plugin, status).Inc()
}

// RecordHookExecution increments the hook execution counter.
// Parameters:
//   - hook: the hook that fired
//   - plugin: the plugin that handled it
//   - status: execution result (use ExecStatus* constants)
func RecordHookExecution(hook, plugin, status string) {
	HookExecutions.WithLabelValues(hook, plugin, status).Inc()
}

// RecordHookDuration records how long one plugin took to handle a hook.
func RecordHookDuration(hook, plugin string, duration time.Duration) {
	HookDuration.WithLabelValues(hook, plugin).Observe(duration.Seconds())
}

// SetPluginsLoaded sets the loaded-plugin gauge.
func SetPluginsLoaded(n int) {
	PluginsLoaded.Set(float64(n))
}
