// Package modelgauge keeps dynamically labeled Prometheus gauges in lockstep
// with refreshing data models.
//
// A model is a map from a stable key to the latest upstream record for that
// key. Each Gauge owns one metric family and maintains a bijection between
// model keys and exported series: Synchronize registers a series for every
// new key, re-registers keys whose label values changed, and drops series
// whose keys left the model. Series values are not cached; every series
// carries a read function that re-queries the model at scrape time, so a
// scrape always reflects the latest refresh even between synchronizations.
//
// The pieces:
//   - Schema: fixes which record attributes become labels and under what
//     names, in a deterministic order.
//   - Def: one gauge definition (name, help, schema, model accessor,
//     projection, value selector).
//   - Gauge: the synchronizer, a prometheus.Collector.
//   - FuncGauge: the collector backend holding the live series.
//   - Normalize: converts selector output (nil, bool, number, ISO-8601
//     timestamp string) into a float64 sample.
//
// A failed series read is reported to Prometheus as an invalid metric for
// that series only; the rest of the scrape is unaffected when the handler
// runs with promhttp.ContinueOnError.
//
// Example usage:
//
//	gauge := modelgauge.New(modelgauge.Def[int, Device]{
//		Name:   "device_up",
//		Help:   "Whether the device is reachable",
//		Schema: modelgauge.NewSchema("id", modelgauge.Identity("id", "name")),
//		Model:  inventory.Devices,
//		Project: func(d Device) modelgauge.Attrs {
//			return modelgauge.Attrs{"id": d.ID, "name": d.Name}
//		},
//		Select: func(d Device) any { return d.Up },
//	}, log)
//
//	prometheus.MustRegister(gauge)
//	_ = gauge.Synchronize()
package modelgauge
