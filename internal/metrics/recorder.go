// Package metrics provides a lightweight recorder that emits custom metrics
// as single-line structured JSON on stdout. Events carry a namespace, free
// dimensions, and typed metric values so they can be scraped from captured
// logs without a metrics backend.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Standard metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

// metricValue holds a single recorded value with its unit.
type metricValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Recorder accumulates dimensions, metrics, and properties for a single flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per
// operation.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricValue
	properties map[string]interface{}
}

// New creates a new Recorder with the given metric namespace.
func New(namespace string) *Recorder {
	return &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricValue),
		properties: make(map[string]interface{}),
	}
}

// Dimension adds a dimension key-value pair (e.g. Operation=analysis).
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a metric value with an explicit unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricValue{Value: value, Unit: unit}
	return r
}

// Count records a counter increment of 1.
func (r *Recorder) Count(name string) *Recorder {
	r.metrics[name] = metricValue{Value: 1, Unit: UnitCount}
	return r
}

// Property attaches extra context to the event without defining a metric.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the accumulated event as one JSON line to stdout. A recorder
// with no metrics emits nothing.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	doc := map[string]interface{}{
		"namespace": r.namespace,
		"timestamp": time.Now().UnixMilli(),
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.metrics {
		doc[k] = v.Value
		doc[k+"Unit"] = v.Unit
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics: marshal failed: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
