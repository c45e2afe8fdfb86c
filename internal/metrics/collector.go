// Package metrics exposes Prometheus metrics about CIF parsing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/cifkit/cif"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cif"

// Collector records parse outcomes. It owns its registry so several
// collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	parses   *prometheus.CounterVec
	duration prometheus.Histogram
	bytes    prometheus.Histogram
	blocks   prometheus.Counter
	loopRows prometheus.Counter
}

// NewCollector creates a collector registered with registry. If registry is
// nil a new one is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_total",
			Help:      "Number of parsed documents by result (ok, lex_error, structural_error, error).",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing one document.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		bytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_bytes",
			Help:      "Size of parsed documents in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Number of data blocks parsed successfully.",
		}),
		loopRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_rows_total",
			Help:      "Number of loop rows parsed successfully, frames included.",
		}),
	}

	registry.MustRegister(c.parses, c.duration, c.bytes, c.blocks, c.loopRows)
	return c
}

// ObserveParse records one parse of size bytes that took d and produced doc
// or err.
func (c *Collector) ObserveParse(size int, d time.Duration, doc *cif.Document, err error) {
	c.parses.WithLabelValues(Result(err)).Inc()
	c.duration.Observe(d.Seconds())
	c.bytes.Observe(float64(size))
	if err != nil || doc == nil {
		return
	}

	rows := 0
	for _, b := range doc.Blocks() {
		rows += countRows(b)
		for _, f := range b.Frames() {
			rows += countRows(f)
		}
	}
	c.blocks.Add(float64(doc.Len()))
	c.loopRows.Add(float64(rows))
}

// Result is the result label for a parse error.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, cif.ErrLex):
		return "lex_error"
	case errors.Is(err, cif.ErrStructural):
		return "structural_error"
	default:
		return "error"
	}
}

func countRows(s cif.Scope) int {
	n := 0
	for _, l := range s.Loops() {
		n += l.Len()
	}
	return n
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
