package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// series is a labeled counter or gauge rendered in Prometheus text format.
// Unlabeled series use a nil label list and are addressed with no values.
type series struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

func newCounter(name, help string, labels ...string) *series {
	return &series{name: name, help: help, kind: "counter", labels: labels, values: map[string]float64{}}
}

func newGauge(name, help string, labels ...string) *series {
	return &series{name: name, help: help, kind: "gauge", labels: labels, values: map[string]float64{}}
}

func (s *series) Inc(values ...string) { s.Add(1, values...) }

func (s *series) Add(v float64, values ...string) {
	if s == nil {
		return
	}
	k := labelString(s.labels, values)
	s.mu.Lock()
	s.values[k] += v
	s.mu.Unlock()
}

// Set is only meaningful for gauges.
func (s *series) Set(v float64, values ...string) {
	if s == nil {
		return
	}
	k := labelString(s.labels, values)
	s.mu.Lock()
	s.values[k] = v
	s.mu.Unlock()
}

func (s *series) Value(values ...string) float64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[labelString(s.labels, values)]
}

func (s *series) WritePrometheus(w io.Writer) error {
	if s == nil {
		return nil
	}
	if err := writeHeader(w, s.name, s.help, s.kind); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", s.name, k, s.values[k]); err != nil {
			return err
		}
	}
	return nil
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.Mutex
	values map[string]*bucketCounts
}

type bucketCounts struct {
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(name, help string, buckets []float64, labels ...string) *histogram {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	return &histogram{name: name, help: help, labels: labels, buckets: buckets, values: map[string]*bucketCounts{}}
}

func (h *histogram) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	k := labelString(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	bc, ok := h.values[k]
	if !ok {
		bc = &bucketCounts{counts: make([]uint64, len(h.buckets))}
		h.values[k] = bc
	}
	bc.sum += v
	bc.total++
	// buckets are cumulative.
	for i, b := range h.buckets {
		if v <= b {
			bc.counts[i]++
		}
	}
}

func (h *histogram) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bc := h.values[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), bc.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %f\n%s_count%s %d\n",
			h.name, withLe(k, "+Inf"), bc.total,
			h.name, k, bc.sum,
			h.name, k, bc.total,
		); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, name, help, kind string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	return err
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		pairs[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func withLe(labels string, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}
