// Package metrics exposes Prometheus metrics for the readiness workflow:
//   - readiness_runs_total{status}            – workflow runs by terminal status
//   - readiness_phases_total{phase,status}    – phase results
//   - readiness_phase_seconds{phase}          – last phase duration (gauge)
//   - readiness_retries_total{phase}          – transient retries performed
//   - readiness_heartbeats_total              – heartbeat events emitted
//   - readiness_preflight_checks_total{check,result} – preflight outcomes
//   - readiness_kill_switch_blocks_total      – orders blocked by the kill switch
//
// Served at /metrics when the CLI is started with --metrics-addr.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_runs_total",
			Help: "Workflow runs by terminal status",
		},
		[]string{"status"},
	)

	PhasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_phases_total",
			Help: "Phase results by phase and status",
		},
		[]string{"phase", "status"},
	)

	PhaseSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "readiness_phase_seconds",
			Help: "Duration of the most recent execution of each phase",
		},
		[]string{"phase"},
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_retries_total",
			Help: "Transient retries performed per phase",
		},
		[]string{"phase"},
	)

	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "readiness_heartbeats_total",
			Help: "Heartbeat events emitted",
		},
	)

	PreflightChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_preflight_checks_total",
			Help: "Preflight check outcomes",
		},
		[]string{"check", "result"},
	)

	KillSwitchBlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "readiness_kill_switch_blocks_total",
			Help: "Order submissions blocked by the kill switch",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		PhasesTotal,
		PhaseSeconds,
		RetriesTotal,
		HeartbeatsTotal,
		PreflightChecksTotal,
		KillSwitchBlocksTotal,
	)
}

// Serve exposes /metrics on addr. Blocks; run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
