package modelgauge

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// FuncGauge is a prometheus.Collector whose series come and go at runtime.
// Each series carries a read function that is evaluated on every scrape, so
// samples are as fresh as the model behind them.
type FuncGauge struct {
	desc       *prometheus.Desc
	name       string
	labelCount int

	mu     sync.RWMutex
	series map[string]*funcSeries
}

type funcSeries struct {
	values []string
	read   func() (float64, error)
}

// NewFuncGauge creates an empty gauge family with a fixed label set.
func NewFuncGauge(name, help string, labels []string) *FuncGauge {
	return &FuncGauge{
		desc:       prometheus.NewDesc(name, help, labels, nil),
		name:       name,
		labelCount: len(labels),
		series:     make(map[string]*funcSeries),
	}
}

// Register adds the series identified by values, replacing any series that
// already carries the same label values.
func (f *FuncGauge) Register(values []string, read func() (float64, error)) {
	if len(values) != f.labelCount {
		panic(fmt.Sprintf("modelgauge: %s: got %d label values, want %d", f.name, len(values), f.labelCount))
	}
	key := seriesKey(values)
	f.mu.Lock()
	f.series[key] = &funcSeries{values: slices.Clone(values), read: read}
	f.mu.Unlock()
}

// Remove drops the series identified by values and reports whether it
// existed. Removing an absent series is tolerated so synchronization passes
// can race benignly.
func (f *FuncGauge) Remove(values []string) bool {
	key := seriesKey(values)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.series[key]; !ok {
		return false
	}
	delete(f.series, key)
	return true
}

// Len reports the number of live series.
func (f *FuncGauge) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.series)
}

// Describe implements prometheus.Collector.
func (f *FuncGauge) Describe(ch chan<- *prometheus.Desc) {
	ch <- f.desc
}

// Collect implements prometheus.Collector. The series map is snapshotted
// under the read lock and the reads run after releasing it: a read may reach
// back into the model, trigger a refresh and re-enter this gauge through
// Register and Remove. A failed read yields an invalid metric for that
// series only.
func (f *FuncGauge) Collect(ch chan<- prometheus.Metric) {
	f.mu.RLock()
	snapshot := make([]*funcSeries, 0, len(f.series))
	for _, s := range f.series {
		snapshot = append(snapshot, s)
	}
	f.mu.RUnlock()

	for _, s := range snapshot {
		value, err := s.read()
		if err != nil {
			ch <- prometheus.NewInvalidMetric(f.desc, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		ch <- prometheus.MustNewConstMetric(f.desc, prometheus.GaugeValue, value, s.values...)
	}
}

// seriesKey joins label values with 0xff, a byte that cannot appear in UTF-8
// label values, giving a collision-free map key.
func seriesKey(values []string) string {
	return strings.Join(values, "\xff")
}
