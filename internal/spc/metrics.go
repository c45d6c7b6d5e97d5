package spc

import "github.com/prometheus/client_golang/prometheus"

var (
	evaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fillwatch",
		Subsystem: "spc",
		Name:      "evaluations_total",
		Help:      "Chart evaluations performed.",
	})
	flagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fillwatch",
		Subsystem: "spc",
		Name:      "flags_total",
		Help:      "Flag events raised, by rule.",
	}, []string{"rule"})
	datasetBatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fillwatch",
		Subsystem: "spc",
		Name:      "dataset_batches",
		Help:      "Batches in the loaded dataset.",
	})
	datasetMeasurements = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fillwatch",
		Subsystem: "spc",
		Name:      "dataset_measurements",
		Help:      "Measurements in the loaded dataset.",
	})
	datasetLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fillwatch",
		Subsystem: "spc",
		Name:      "dataset_load_duration_seconds",
		Help:      "Time to load and annotate the dataset.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(
		evaluationsTotal,
		flagsTotal,
		datasetBatches,
		datasetMeasurements,
		datasetLoadDuration,
	)
}
