// Package metrics exports core.MetricsRecorder samples to Prometheus.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder creates counter and histogram vectors on first use. The
// label names of a metric are fixed by its first sample; later samples fill
// missing labels with "" and drop unknown ones.
type PrometheusRecorder struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labels     map[string][]string
}

type Option func(*PrometheusRecorder)

func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(r *PrometheusRecorder) {
		if registerer != nil {
			r.registerer = registerer
		}
	}
}

func WithNamespace(namespace string) Option {
	return func(r *PrometheusRecorder) {
		r.namespace = sanitizeName(namespace)
	}
}

// WithBuckets sets histogram buckets in milliseconds.
func WithBuckets(buckets ...float64) Option {
	return func(r *PrometheusRecorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

func NewPrometheusRecorder(opts ...Option) *PrometheusRecorder {
	recorder := &PrometheusRecorder{
		registerer: prometheus.DefaultRegisterer,
		buckets:    []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
		labels:     map[string][]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *PrometheusRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	counter, labels := r.counter(sanitizeName(name), tags)
	if counter == nil {
		return
	}
	counter.With(labelValues(labels, tags)).Add(float64(value))
}

func (r *PrometheusRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram, labels := r.histogram(sanitizeName(name), tags)
	if histogram == nil {
		return
	}
	histogram.With(labelValues(labels, tags)).Observe(value)
}

func (r *PrometheusRecorder) counter(name string, tags map[string]string) (*prometheus.CounterVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[name]; ok {
		return vec, r.labels[name]
	}
	labels := labelNames(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Count of " + strings.ReplaceAll(name, "_", " ") + ".",
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		existing, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, nil
		}
		if vec, ok = existing.ExistingCollector.(*prometheus.CounterVec); !ok {
			return nil, nil
		}
	}
	r.counters[name] = vec
	r.labels[name] = labels
	return vec, labels
}

func (r *PrometheusRecorder) histogram(name string, tags map[string]string) (*prometheus.HistogramVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[name]; ok {
		return vec, r.labels[name]
	}
	labels := labelNames(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Distribution of " + strings.ReplaceAll(name, "_", " ") + ".",
		Buckets:   r.buckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		existing, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, nil
		}
		if vec, ok = existing.ExistingCollector.(*prometheus.HistogramVec); !ok {
			return nil, nil
		}
	}
	r.histograms[name] = vec
	r.labels[name] = labels
	return vec, labels
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for key := range tags {
		if name := sanitizeName(key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) prometheus.Labels {
	values := make(prometheus.Labels, len(labels))
	for _, label := range labels {
		values[label] = ""
	}
	for key, value := range tags {
		name := sanitizeName(key)
		if _, ok := values[name]; ok {
			values[name] = value
		}
	}
	return values
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)
