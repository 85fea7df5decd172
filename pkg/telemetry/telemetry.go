// Package telemetry registers the process metrics served at /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
)

var (
	threadsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threaddb_threads_created_total",
		Help: "Threads created, by kind.",
	}, []string{"kind"})

	threadsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threaddb_threads_deleted_total",
		Help: "Threads deleted with their owned records.",
	})

	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threaddb_friend_request_transitions_total",
		Help: "Applied friend-request transitions.",
	}, []string{"event", "from", "to"})

	noops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threaddb_friend_request_noops_total",
		Help: "Handshake events that matched no edge and were ignored.",
	}, []string{"event", "state"})

	interactionsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threaddb_interactions_recorded_total",
		Help: "Interactions appended to threads, by direction.",
	}, []string{"direction"})

	swept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threaddb_expiry_swept_total",
		Help: "Records affected by expiry sweeps, by sweep kind.",
	}, []string{"kind"})

	diskUsage = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "threaddb_store_disk_usage_bytes",
		Help: "On-disk size of the thread store.",
	}, func() float64 { return float64(store.Metrics().DiskUsageBytes) })

	compactionBacklog = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "threaddb_store_compaction_backlog_bytes",
		Help: "Estimated compaction debt of the thread store.",
	}, func() float64 { return float64(store.Metrics().CompactionBacklog) })
)

func init() {
	prometheus.MustRegister(
		threadsCreated,
		threadsDeleted,
		transitions,
		noops,
		interactionsRecorded,
		swept,
		diskUsage,
		compactionBacklog,
	)
}

// ThreadCreated counts a new thread record.
func ThreadCreated(kind models.ThreadKind) {
	threadsCreated.WithLabelValues(string(kind)).Inc()
}

// ThreadDeleted counts a cascade deletion.
func ThreadDeleted() {
	threadsDeleted.Inc()
}

// TransitionApplied counts an applied handshake transition.
func TransitionApplied(tr models.Transition) {
	transitions.WithLabelValues(string(tr.Event), string(tr.From), string(tr.To)).Inc()
}

// TransitionNoop counts a handshake event that matched no edge.
func TransitionNoop(tr models.Transition) {
	noops.WithLabelValues(string(tr.Event), string(tr.From)).Inc()
}

// InteractionRecorded counts an appended interaction.
func InteractionRecorded(d models.Direction) {
	interactionsRecorded.WithLabelValues(string(d)).Inc()
}

// Swept adds the number of records an expiry sweep affected.
func Swept(kind string, n int) {
	if n > 0 {
		swept.WithLabelValues(kind).Add(float64(n))
	}
}
