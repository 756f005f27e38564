package datamgmt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_data_operations_total",
		Help: "Export, import and delete operations by outcome",
	}, []string{"operation", "status"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sheet_data_operation_duration_seconds",
		Help:    "Time spent exporting, importing or deleting",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	sectionWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_import_section_failures_total",
		Help: "Snapshot sections that could not be written during import",
	}, []string{"section"})

	snapshotBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sheet_snapshot_size_bytes",
		Help: "Size of the most recently written or read snapshot file",
	})
)

func observe(operation string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(operation, status).Inc()
	operationDuration.WithLabelValues(operation).Observe(seconds)
}
