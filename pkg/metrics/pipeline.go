package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the pipeline collectors. A batch CLI has no scrape endpoint, so
// the registry is exported to a node-exporter textfile instead.
var Registry = prometheus.NewRegistry()

type pipelineMetrics struct {
	documentsTotal *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	renamesTotal   *prometheus.CounterVec
}

var pipelineSingleton = sync.OnceValue(func() *pipelineMetrics {
	factory := promauto.With(Registry)
	return &pipelineMetrics{
		documentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formsync",
			Name:      "documents_total",
			Help:      "Documents reconciled, by report category.",
		}, []string{"category", "mode"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formsync",
			Name:      "runs_total",
			Help:      "Reconciliation runs, by result.",
		}, []string{"result", "mode"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "formsync",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"mode"}),
		renamesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formsync",
			Name:      "renames_total",
			Help:      "Rename plan entries, by status.",
		}, []string{"status"}),
	}
})

func mode(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "apply"
}

func ObserveDocuments(category string, dryRun bool, n int) {
	if n <= 0 {
		return
	}
	pipelineSingleton().documentsTotal.WithLabelValues(category, mode(dryRun)).Add(float64(n))
}

func ObserveRun(result string, dryRun bool, elapsed time.Duration) {
	m := pipelineSingleton()
	m.runsTotal.WithLabelValues(result, mode(dryRun)).Inc()
	m.runDuration.WithLabelValues(mode(dryRun)).Observe(elapsed.Seconds())
}

func ObserveRename(status string) {
	pipelineSingleton().renamesTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes the registry in the text exposition format to path.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
