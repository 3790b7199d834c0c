package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRecordsPageJSON(t *testing.T) {
	year := 2024
	page := RecordsPage{
		DatasetID: "abc",
		Total:     2,
		Columns:   []string{"year", "month", "category", "value", "quantity"},
		Rows: []CanonicalRecord{
			{Year: &year, Month: "Janar", Category: "Textiles", Value: 1500, Quantity: 2, Cells: []string{"x"}},
			{Category: "Food", Value: math.NaN(), Quantity: math.Inf(1)},
		},
	}

	data, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got struct {
		Total int              `json:"total"`
		Rows  []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Total != 2 || len(got.Rows) != 2 {
		t.Fatalf("page = %s", data)
	}

	first := got.Rows[0]
	if first["year"] != float64(2024) || first["month"] != "Janar" || first["value"] != float64(1500) || first["quantity"] != float64(2) {
		t.Errorf("first row = %v", first)
	}
	if _, ok := first["trade_type"]; ok {
		t.Errorf("first row has a column outside Columns: %v", first)
	}

	second := got.Rows[1]
	for _, k := range []string{"year", "value", "quantity"} {
		v, ok := second[k]
		if !ok || v != nil {
			t.Errorf("second row %s = %v (present %v), want null", k, v, ok)
		}
	}
	if second["month"] != "" {
		t.Errorf("second row month = %v, want empty", second["month"])
	}
}
