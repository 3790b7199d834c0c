package models

import (
	"math"
	"strconv"
)

// AggregateRow is one row of a derived summary table.
type AggregateRow struct {
	Key     map[string]string `json:"key"`
	Value   float64           `json:"value"`
	Percent float64           `json:"percent_of_group"`
	Label   string            `json:"label,omitempty"`
	// Other marks the synthetic row that collects collapsed rows.
	Other bool `json:"other,omitempty"`
}

// Clone returns a copy of r whose Key map is independent of the original.
func (r AggregateRow) Clone() AggregateRow {
	out := r
	out.Key = make(map[string]string, len(r.Key))
	for k, v := range r.Key {
		out.Key[k] = v
	}
	return out
}

// ChartTable is the chart-ready output of one feature module.
type ChartTable struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Kind        string         `json:"kind"` // line, grouped_bar, bar, pie, ranking, kpi
	KeyFields   []string       `json:"key_fields"`
	Metric      Field          `json:"metric,omitempty"`
	HasPercent  bool           `json:"has_percent"`
	Rows        []AggregateRow `json:"rows"`
	Partitioned string         `json:"partitioned_by,omitempty"`
}

// SkippedChart explains why a chart module produced no table.
type SkippedChart struct {
	ID      string  `json:"id"`
	Missing []Field `json:"missing"`
	Note    string  `json:"note"`
}

func itoa(i int) string { return strconv.Itoa(i) }

func formatMetric(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
