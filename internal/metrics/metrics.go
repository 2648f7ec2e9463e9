package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccumulatorsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sifacc",
		Subsystem: "registry",
		Name:      "accumulators",
		Help:      "Number of driver accumulators currently registered",
	})

	UnregisteredUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sifacc",
		Subsystem: "registry",
		Name:      "unregistered_updates_total",
		Help:      "Updates which referenced an accumulator id that was not registered",
	})

	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sifacc",
		Subsystem: "registry",
		Name:      "updates_total",
		Help:      "Total updates merged into driver accumulators",
	}, []string{"kind"})

	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sifacc",
		Subsystem: "server",
		Name:      "batches_total",
		Help:      "Total update batches merged and acknowledged",
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sifacc",
		Subsystem: "server",
		Name:      "batch_size",
		Help:      "Number of updates per batch",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	ServerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sifacc",
		Subsystem: "server",
		Name:      "failures_total",
		Help:      "Synchronization services which terminated abnormally",
	})

	PushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sifacc",
		Subsystem: "client",
		Name:      "pushes_total",
		Help:      "Update batches pushed by workers",
	}, []string{"status"})
)
