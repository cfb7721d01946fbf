// Package metrics defines the Prometheus metrics exported by the wrapper.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts supervised processes by kind and outcome
	// ("completed", "timeout", "start-error", "dry-run").
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iperf3wrapper_commands_total",
			Help: "Number of supervised commands by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// ParseErrorsTotal counts outputs that could not be used, by kind and
	// reason.
	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iperf3wrapper_parse_errors_total",
			Help: "Number of tool outputs discarded by kind and reason.",
		},
		[]string{"kind", "reason"},
	)

	// ProbesTotal counts port probes by result ("free", "busy", "cached").
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iperf3wrapper_probes_total",
			Help: "Number of port probes by result.",
		},
		[]string{"result"},
	)

	// ScenarioDuration is the wall-clock duration of a scenario run by mode.
	ScenarioDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iperf3wrapper_scenario_duration_seconds",
			Help:    "Duration of scenario runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
		[]string{"mode"},
	)
)
