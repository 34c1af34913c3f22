package devkit

import (
	"context"
	"sync"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// CaptureLogger records log calls. Derived loggers share the same buffer.
type CaptureLogger struct {
	mu       *sync.Mutex
	entries  *[]LogEntry
	defaults map[string]any
}

func NewCaptureLogger() *CaptureLogger {
	entries := []LogEntry{}
	return &CaptureLogger{mu: &sync.Mutex{}, entries: &entries, defaults: map[string]any{}}
}

func (l *CaptureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *CaptureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *CaptureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *CaptureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *CaptureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *CaptureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *CaptureLogger) WithContext(context.Context) core.Logger {
	return &CaptureLogger{mu: l.mu, entries: l.entries, defaults: copyFields(l.defaults)}
}

func (l *CaptureLogger) WithFields(fields map[string]any) core.Logger {
	merged := copyFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &CaptureLogger{mu: l.mu, entries: l.entries, defaults: merged}
}

func (l *CaptureLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), (*l.entries)...)
}

// Find returns the first entry with level and message.
func (l *CaptureLogger) Find(level string, message string) (LogEntry, bool) {
	for _, entry := range l.Entries() {
		if entry.Level == level && entry.Message == message {
			return entry, true
		}
	}
	return LogEntry{}, false
}

func (l *CaptureLogger) record(level string, msg string, args ...any) {
	fields := copyFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		if key, ok := args[index].(string); ok {
			fields[key] = args[index+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

type MetricSample struct {
	Name  string
	Value float64
	Tags  map[string]string
}

type CaptureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []MetricSample
	histograms []MetricSample
}

func (m *CaptureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, MetricSample{Name: name, Value: float64(value), Tags: copyTags(tags)})
}

func (m *CaptureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, MetricSample{Name: name, Value: value, Tags: copyTags(tags)})
}

// CounterTotal sums counter samples named name whose tags include match.
func (m *CaptureMetricsRecorder) CounterTotal(name string, match map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, sample := range m.counters {
		if sample.Name != name || !tagsMatch(sample.Tags, match) {
			continue
		}
		total += sample.Value
	}
	return total
}

func (m *CaptureMetricsRecorder) Histograms() []MetricSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetricSample(nil), m.histograms...)
}

func tagsMatch(tags map[string]string, match map[string]string) bool {
	for key, value := range match {
		if tags[key] != value {
			return false
		}
	}
	return true
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyTags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.Logger          = (*CaptureLogger)(nil)
	_ core.FieldsLogger    = (*CaptureLogger)(nil)
	_ core.MetricsRecorder = (*CaptureMetricsRecorder)(nil)
)
