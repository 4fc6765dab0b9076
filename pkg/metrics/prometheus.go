// Package metrics provides Prometheus metrics for leaderboard runs.
//
// A run is a short-lived batch job, so nothing is served over HTTP; the
// registry is written to a node-exporter textfile at the end of the run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File outcomes recorded by RecordFile.
const (
	FileScored     = "scored"
	FileNoScore    = "no_score"
	FileParseError = "parse_error"
	FileFetchError = "fetch_error"
	FilePanic      = "panic"
	FileIgnored    = "ignored"
)

// Publish outcomes recorded by RecordPublish.
const (
	PublishCreated   = "created"
	PublishUpdated   = "updated"
	PublishUnchanged = "unchanged"
	PublishWritten   = "written"
	PublishFailed    = "failed"
)

// defaultNamespace prefixes every metric name unless WithNamespace
// overrides it.
const defaultNamespace = "gradeboard"

const subsystem = "run"

// stageBuckets are the stage duration histogram bounds, in seconds.
var stageBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for a leaderboard run.
type Manager struct {
	namespace    string
	enabled      bool
	customLabels map[string]string
	registry     prometheus.Registerer

	// Team and file flow
	teams     *prometheus.CounterVec
	files     *prometheus.CounterVec
	sentinels prometheus.Counter
	entries   *prometheus.CounterVec

	// Aggregated output
	leaderboardRows *prometheus.GaugeVec

	// Boundary
	publishes   *prometheus.CounterVec
	fetchErrors prometheus.Counter

	// Timing
	stageDuration *prometheus.HistogramVec
	lastRunUnix   prometheus.Gauge
	runSuccess    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once, before the run starts.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    defaultNamespace,
		enabled:      true,
		customLabels: make(map[string]string),
		registry:     prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.teams = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "teams_total",
		Help:        "Teams processed, by whether any recognized submission was found",
		ConstLabels: labels,
	}, []string{"status"})

	m.files = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "files_total",
		Help:        "Submission files seen, by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.sentinels = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "missing_submission_entries_total",
		Help:        "Sentinel entries emitted for teams without recognized files",
		ConstLabels: labels,
	})

	m.entries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "entries_total",
		Help:        "Leaderboard entries produced by the scorer, by leaderboard",
		ConstLabels: labels,
	}, []string{"leaderboard"})

	m.leaderboardRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "leaderboard_rows",
		Help:        "Rows in each aggregated leaderboard",
		ConstLabels: labels,
	}, []string{"leaderboard"})

	m.publishes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "publish_total",
		Help:        "Leaderboard publish attempts, by target and outcome",
		ConstLabels: labels,
	}, []string{"target", "outcome"})

	m.fetchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "fetch_errors_total",
		Help:        "Remote calls that failed while listing or downloading submissions",
		ConstLabels: labels,
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Wall time spent in each pipeline stage",
		Buckets:     stageBuckets,
		ConstLabels: labels,
	}, []string{"stage"})

	m.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time the last run finished",
		ConstLabels: labels,
	})

	m.runSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "last_run_success",
		Help:        "1 if the last run published every leaderboard, 0 otherwise",
		ConstLabels: labels,
	})
}

// RecordTeam counts a processed team. missing is true when the team had no
// recognized submission files.
func (m *Manager) RecordTeam(missing bool) {
	if !m.enabled {
		return
	}
	status := "submitted"
	if missing {
		status = "missing"
	}
	m.teams.WithLabelValues(status).Inc()
}

// RecordFile counts a submission file by outcome.
func (m *Manager) RecordFile(outcome string) {
	if !m.enabled {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
}

// RecordSentinel counts a missing-submission entry.
func (m *Manager) RecordSentinel() {
	if !m.enabled {
		return
	}
	m.sentinels.Inc()
}

// RecordEntries adds n scorer entries for a leaderboard.
func (m *Manager) RecordEntries(leaderboard string, n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.entries.WithLabelValues(leaderboard).Add(float64(n))
}

// UpdateLeaderboardRows sets the aggregated row count of a leaderboard.
func (m *Manager) UpdateLeaderboardRows(leaderboard string, rows int) {
	if !m.enabled {
		return
	}
	m.leaderboardRows.WithLabelValues(leaderboard).Set(float64(rows))
}

// RecordPublish counts a publish attempt.
func (m *Manager) RecordPublish(target, outcome string) {
	if !m.enabled {
		return
	}
	m.publishes.WithLabelValues(target, outcome).Inc()
}

// RecordFetchError counts a failed remote call.
func (m *Manager) RecordFetchError() {
	if !m.enabled {
		return
	}
	m.fetchErrors.Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// MarkRunFinished stamps the completion time and result of a run.
func (m *Manager) MarkRunFinished(at time.Time, ok bool) {
	if !m.enabled {
		return
	}
	m.lastRunUnix.Set(float64(at.Unix()))
	if ok {
		m.runSuccess.Set(1)
	} else {
		m.runSuccess.Set(0)
	}
}

// Package-level helpers forwarding to the global manager.

// RecordTeam counts a processed team on the global manager.
func RecordTeam(missing bool) { globalManager.RecordTeam(missing) }

// RecordFile counts a submission file on the global manager.
func RecordFile(outcome string) { globalManager.RecordFile(outcome) }

// RecordSentinel counts a missing-submission entry on the global manager.
func RecordSentinel() { globalManager.RecordSentinel() }

// RecordEntries adds scorer entries on the global manager.
func RecordEntries(leaderboard string, n int) { globalManager.RecordEntries(leaderboard, n) }

// UpdateLeaderboardRows sets a leaderboard row gauge on the global manager.
func UpdateLeaderboardRows(leaderboard string, rows int) {
	globalManager.UpdateLeaderboardRows(leaderboard, rows)
}

// RecordPublish counts a publish attempt on the global manager.
func RecordPublish(target, outcome string) { globalManager.RecordPublish(target, outcome) }

// RecordFetchError counts a failed remote call on the global manager.
func RecordFetchError() { globalManager.RecordFetchError() }

// ObserveStage records stage timing on the global manager.
func ObserveStage(stage string, d time.Duration) { globalManager.ObserveStage(stage, d) }

// MarkRunFinished stamps run completion on the global manager.
func MarkRunFinished(at time.Time, ok bool) { globalManager.MarkRunFinished(at, ok) }

// WriteTextfile writes the global registry in the node-exporter textfile
// format. The write is atomic (temp file + rename).
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
