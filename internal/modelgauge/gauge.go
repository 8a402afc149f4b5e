package modelgauge

import (
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/status-exporter/internal/logger"
)

// Def describes one synchronized gauge: where its records come from, how a
// record projects onto labels, and what value each record samples.
type Def[K comparable, R any] struct {
	// Name and Help are the Prometheus metric name and help string.
	Name string
	Help string

	// Schema maps projected attributes onto exported labels. The schema's id
	// attribute must project to the record's model key.
	Schema Schema

	// Model returns the current key-to-record snapshot. It runs once per
	// Synchronize and once per series read at scrape time, and may trigger a
	// refresh before returning.
	Model func() (map[K]R, error)

	// Project extracts a record's exportable attributes. Every schema
	// attribute must be present; extra attributes are ignored.
	Project func(R) Attrs

	// Select extracts the value to sample from a record. It may return nil,
	// a bool, a number, an ISO-8601 timestamp string, or an error value to
	// fail the read for this series.
	Select func(R) any
}

// Synchronizer is the driver-facing face of a Gauge, independent of its type
// parameters.
type Synchronizer interface {
	prometheus.Collector
	Name() string
	Synchronize() error
}

// Gauge keeps the exported series of one metric in lockstep with a model
// map: exactly one series per model key, labels from the key's latest
// projection, value read from the live model on every scrape.
type Gauge[K comparable, R any] struct {
	def     Def[K, R]
	log     *logger.Logger
	backend *FuncGauge

	mu      sync.Mutex
	current map[K][]string
}

var _ Synchronizer = (*Gauge[int, any])(nil)

// New creates a gauge for def. The gauge implements prometheus.Collector and
// must be registered by the caller; it exports no series until the first
// Synchronize.
func New[K comparable, R any](def Def[K, R], log *logger.Logger) *Gauge[K, R] {
	return &Gauge[K, R]{
		def:     def,
		log:     log,
		backend: NewFuncGauge(def.Name, def.Help, def.Schema.Labels()),
		current: make(map[K][]string),
	}
}

// Name returns the metric name.
func (g *Gauge[K, R]) Name() string { return g.def.Name }

// Describe implements prometheus.Collector.
func (g *Gauge[K, R]) Describe(ch chan<- *prometheus.Desc) { g.backend.Describe(ch) }

// Collect implements prometheus.Collector.
func (g *Gauge[K, R]) Collect(ch chan<- prometheus.Metric) { g.backend.Collect(ch) }

// Synchronize reconciles the exported series with the current model: new
// keys gain a series, keys whose label combination changed are registered
// under the new labels before the old ones are dropped, and keys gone from
// the model lose their series. A second call without a model change makes no
// backend writes.
func (g *Gauge[K, R]) Synchronize() error {
	// The model accessor may take scheduling locks and run a refresh, so it
	// runs before the gauge lock is held.
	model, err := g.def.Model()
	if err != nil {
		return fmt.Errorf("%s: model: %w", g.def.Name, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range model {
		attrs := g.def.Project(rec)
		if id := attrs[g.def.Schema.IDAttr()]; id != any(k) {
			panic(fmt.Sprintf("modelgauge: %s: record under key %v projects id attribute %q as %v",
				g.def.Name, k, g.def.Schema.IDAttr(), id))
		}
		combination := g.def.Schema.Combination(attrs)
		previous, known := g.current[k]
		if known && slices.Equal(previous, combination) {
			continue
		}
		g.backend.Register(combination, g.reader(k))
		if known {
			if !g.backend.Remove(previous) {
				g.log.Info("Stale label combination already gone", "metric", g.def.Name, "labels", previous)
			}
		}
		g.current[k] = combination
	}

	for k, previous := range g.current {
		if _, ok := model[k]; ok {
			continue
		}
		if !g.backend.Remove(previous) {
			g.log.Info("Removed label combination already gone", "metric", g.def.Name, "labels", previous)
		}
		delete(g.current, k)
	}
	return nil
}

// reader builds the scrape-time read for one key. It re-queries the model so
// the sample reflects the latest refresh even when no Synchronize has run
// since; a key that left the model in the meantime fails the read.
func (g *Gauge[K, R]) reader(k K) func() (float64, error) {
	return func() (float64, error) {
		model, err := g.def.Model()
		if err != nil {
			return 0, err
		}
		rec, ok := model[k]
		if !ok {
			return 0, fmt.Errorf("key %v is no longer in the model", k)
		}
		return Normalize(g.def.Select(rec))
	}
}
