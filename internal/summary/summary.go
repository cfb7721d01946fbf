// Package summary reduces parsed tool outputs into a flat set of metrics.
package summary

import (
	"bytes"
	"encoding/json"

	"github.com/m-lab/iperf3-wrapper/pkg/results"
)

// NotAvailable is displayed in place of missing metrics.
const NotAvailable = "N/A"

// Summary is an ordered set of named scalar metrics. A Summary is not
// modified once returned by Reduce.
type Summary struct {
	metrics []results.NameValue
	index   map[string]int
}

func newSummary() *Summary {
	return &Summary{index: make(map[string]int)}
}

func (s *Summary) set(name, value string) {
	if i, ok := s.index[name]; ok {
		s.metrics[i].Value = value
		return
	}
	s.index[name] = len(s.metrics)
	s.metrics = append(s.metrics, results.NameValue{Name: name, Value: value})
}

// Get returns the named metric.
func (s *Summary) Get(name string) (string, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.metrics[i].Value, true
}

// Display returns the named metric or NotAvailable.
func (s *Summary) Display(name string) string {
	if v, ok := s.Get(name); ok && v != "" {
		return v
	}
	return NotAvailable
}

// Names returns the metric names in insertion order.
func (s *Summary) Names() []string {
	names := make([]string, 0, len(s.metrics))
	for _, m := range s.metrics {
		names = append(names, m.Name)
	}
	return names
}

// Metrics returns a copy of the metrics in insertion order.
func (s *Summary) Metrics() []results.NameValue {
	return append([]results.NameValue(nil), s.metrics...)
}

// Map returns the metrics as a map.
func (s *Summary) Map() map[string]string {
	m := make(map[string]string, len(s.metrics))
	for _, nv := range s.metrics {
		m[nv.Name] = nv.Value
	}
	return m
}

// MarshalJSON marshals the metrics as a JSON object, preserving order.
func (s *Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range s.metrics {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Columns returns the union of the metric names of all summaries, in order
// of first appearance.
func Columns(summaries []*Summary) []string {
	seen := map[string]bool{}
	var cols []string
	for _, s := range summaries {
		for _, name := range s.Names() {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	return cols
}
