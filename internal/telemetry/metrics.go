package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики системы. Регистрируются в default registry,
// отдаются через promhttp в каждом сервисе.
var (
	// RunsTotal — завершённые runs по итоговому статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conveyor",
		Name:      "runs_total",
		Help:      "Completed pipeline runs by final status.",
	}, []string{"status"})

	// JobsTotal — завершённые jobs по итоговому статусу.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conveyor",
		Name:      "jobs_total",
		Help:      "Completed jobs by final status.",
	}, []string{"status"})

	// ArtifactPublishesTotal — публикации артефактов по результату.
	ArtifactPublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conveyor",
		Name:      "artifact_publishes_total",
		Help:      "Artifact publish attempts by result.",
	}, []string{"result"})

	// RolloutsTotal — rollout'ы по итоговому состоянию.
	RolloutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conveyor",
		Name:      "rollouts_total",
		Help:      "Rollouts by final state.",
	}, []string{"state"})

	// RunDurationSeconds — длительность завершённых runs.
	RunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "conveyor",
		Name:      "run_duration_seconds",
		Help:      "Duration of completed runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)
