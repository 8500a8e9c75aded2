package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes recorded on neso_runs_total.
const (
	OutcomeSaved       = "saved"
	OutcomeEmpty       = "empty"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeMapFailed   = "map_failed"
	OutcomeSaveFailed  = "save_failed"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	Runs        *prometheus.CounterVec
	RowsFetched prometheus.Counter
	RowsDropped prometheus.Counter
	ValuesSaved prometheus.Counter
	RunDuration prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// New registers the pipeline collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "neso_runs_total",
			Help: "Total number of pipeline runs by outcome.",
		}, []string{"outcome"}),
		RowsFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "neso_rows_fetched_total",
			Help: "Total number of normalized rows fetched from the datastore.",
		}),
		RowsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "neso_rows_dropped_total",
			Help: "Total number of datastore records dropped during normalization.",
		}),
		ValuesSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "neso_forecast_values_saved_total",
			Help: "Total number of forecast values written to the database.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "neso_run_duration_seconds",
			Help:    "Duration of pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neso_last_success_timestamp_seconds",
			Help: "Unix time of the last run that saved forecasts.",
		}),
	}
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(time.Since(started).Seconds())
	if outcome == OutcomeSaved {
		m.LastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile dumps every metric gathered by g to path in the
// node_exporter textfile format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
