package models

import "encoding/json"

// DatasetSummary describes a loaded dataset and what its schema supports.
type DatasetSummary struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Encoding      string           `json:"encoding"`
	RowCount      int              `json:"row_count"`
	SourceHeaders []string         `json:"source_headers"`
	Capabilities  []Field          `json:"capabilities"`
	Missing       []Field          `json:"missing"`
	SourceColumns map[Field]string `json:"source_columns"`
	HSColumn      string           `json:"hs_column,omitempty"`
	HSDetection   HSDetection      `json:"hs_detection"`
	FilterOptions FilterOptions    `json:"filter_options"`
}

// NewDatasetSummary summarizes table under id and name.
func NewDatasetSummary(id, name string, table CanonicalTable, opts FilterOptions) *DatasetSummary {
	missing := table.Capabilities.Missing(CanonicalFields...)
	if missing == nil {
		missing = []Field{}
	}
	present := table.Capabilities.Present()
	if present == nil {
		present = []Field{}
	}
	return &DatasetSummary{
		ID:            id,
		Name:          name,
		Encoding:      table.Encoding,
		RowCount:      table.Len(),
		SourceHeaders: table.SourceHeaders,
		Capabilities:  present,
		Missing:       missing,
		SourceColumns: table.SourceColumns,
		HSColumn:      table.HSColumn,
		HSDetection:   table.HSDetection,
		FilterOptions: opts,
	}
}

// DashboardResult is the chart-ready output of one dashboard render.
type DashboardResult struct {
	DatasetID string           `json:"dataset_id"`
	Request   DashboardRequest `json:"request"`
	RowCount  int              `json:"row_count"`
	Charts    []ChartTable     `json:"charts"`
	Skipped   []SkippedChart   `json:"skipped"`
	Warning   string           `json:"warning,omitempty"`
}

// RecordsPage is a window of filtered records.
type RecordsPage struct {
	DatasetID string            `json:"dataset_id"`
	Total     int               `json:"total"`
	Columns   []string          `json:"columns"`
	Rows      []CanonicalRecord `json:"rows"`
}

// MarshalJSON writes each row as an object keyed by Columns.
func (p RecordsPage) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]any, len(p.Rows))
	for i, rec := range p.Rows {
		row := make(map[string]any, len(p.Columns))
		for _, c := range p.Columns {
			row[c] = rec.JSONValue(Field(c))
		}
		rows[i] = row
	}
	return json.Marshal(struct {
		DatasetID string           `json:"dataset_id"`
		Total     int              `json:"total"`
		Columns   []string         `json:"columns"`
		Rows      []map[string]any `json:"rows"`
	}{p.DatasetID, p.Total, p.Columns, rows})
}
