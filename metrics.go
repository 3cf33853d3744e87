package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "particlebridge_batches_total",
		Help: "Batches applied, by outcome",
	}, []string{"outcome"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "particlebridge_batch_duration_seconds",
		Help:    "Duration of edit application and flush for one batch",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "particlebridge_mutations_total",
		Help: "Physical mutations issued to the element manager, by operation",
	}, []string{"op"})

	droppedEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "particlebridge_dropped_edits_total",
		Help: "Pending edits dropped because their physical index was negative, by kind",
	}, []string{"kind"})
)
