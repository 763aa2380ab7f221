// Package metrics exposes Prometheus collectors for ingestion runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ingest"

// Publish outcomes.
const (
	OutcomeWritten = "written"
	OutcomeSkipped = "skipped"
)

// Collector holds every ingestion metric on its own registry.
type Collector struct {
	registry *prometheus.Registry

	RowsTotal       *prometheus.CounterVec
	PublishesTotal  *prometheus.CounterVec
	BytesWritten    *prometheus.CounterVec
	EntityDuration  *prometheus.HistogramVec
	FailuresTotal   *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	LastRunUnixTime prometheus.Gauge
}

// New creates a Collector with Go runtime and process collectors registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newCollector(reg)
}

func newCollector(reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		RowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed by entity and result (valid, invalid).",
		}, []string{"entity", "result"}),
		PublishesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Artifact publishes by kind and outcome (written, skipped).",
		}, []string{"kind", "outcome"}),
		BytesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to the object store by kind.",
		}, []string{"kind"}),
		EntityDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entity_duration_seconds",
			Help:      "Time to load, validate and publish one entity.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"entity"}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_failures_total",
			Help:      "Entities that aborted with a fatal error, by error code.",
		}, []string{"entity", "code"}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by status (success, failure).",
		}, []string{"status"}),
		LastRunUnixTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRows records the partition counts of one entity.
func (c *Collector) ObserveRows(entity string, valid, invalid int) {
	c.RowsTotal.WithLabelValues(entity, "valid").Add(float64(valid))
	c.RowsTotal.WithLabelValues(entity, "invalid").Add(float64(invalid))
}

// ObservePublish records one publish call.
func (c *Collector) ObservePublish(kind string, skipped bool, bytes int) {
	outcome := OutcomeWritten
	if skipped {
		outcome = OutcomeSkipped
	}
	c.PublishesTotal.WithLabelValues(kind, outcome).Inc()
	if !skipped {
		c.BytesWritten.WithLabelValues(kind).Add(float64(bytes))
	}
}

// ObserveEntity records how long an entity took since start.
func (c *Collector) ObserveEntity(entity string, start time.Time) {
	c.EntityDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
}

// ObserveFailure counts an aborted entity.
func (c *Collector) ObserveFailure(entity, code string) {
	c.FailuresTotal.WithLabelValues(entity, code).Inc()
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(failed bool) {
	status := "success"
	if failed {
		status = "failure"
	}
	c.RunsTotal.WithLabelValues(status).Inc()
	c.LastRunUnixTime.SetToCurrentTime()
}
