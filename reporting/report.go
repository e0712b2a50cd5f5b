package reporting

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Report is an insertion-ordered mapping of metric name to value. Values may
// be +Inf (e.g. a Sortino ratio with no downside observations), which JSON
// cannot represent as a number; MarshalJSON emits such values as the strings
// "Infinity" and "-Infinity".
type Report struct {
	names  []string
	values map[string]float64
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{values: make(map[string]float64)}
}

// Set stores a metric, preserving first-insertion order for names.
func (r *Report) Set(name string, value float64) {
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get returns a metric by name.
func (r *Report) Get(name string) (float64, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the metric names in insertion order.
func (r *Report) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of metrics.
func (r *Report) Len() int { return len(r.names) }

// MarshalJSON renders the report as a JSON object in insertion order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := r.values[name]
		switch {
		case math.IsInf(v, 1):
			buf.WriteString(`"Infinity"`)
		case math.IsInf(v, -1):
			buf.WriteString(`"-Infinity"`)
		default:
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
