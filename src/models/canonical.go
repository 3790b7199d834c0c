// backend/src/models/canonical.go
package models

import (
	"math"
	"strings"
	"time"
)

// Field names a column of the canonical schema.
type Field string

const (
	FieldYear      Field = "year"
	FieldMonth     Field = "month"
	FieldTradeType Field = "trade_type"
	FieldCategory  Field = "category"
	FieldValue     Field = "value"
	FieldQuantity  Field = "quantity"
	FieldHSCode    Field = "hs_code"
)

// CanonicalFields lists the canonical schema in priority order.
var CanonicalFields = []Field{
	FieldYear, FieldMonth, FieldTradeType, FieldCategory, FieldValue, FieldQuantity, FieldHSCode,
}

// ParseField resolves a field name as used in query strings and config files.
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CanonicalFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Source is one raw dataset as handed to the loader: a file read from disk or an
// uploaded buffer.
type Source struct {
	Name    string
	Path    string // empty for uploads
	Data    []byte
	ModTime time.Time
}

// RawTable is the loader output: header row plus body rows, all as decoded text.
// Every row has exactly len(Headers) cells.
type RawTable struct {
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
	Encoding string     `json:"encoding"`
}

// IsEmpty reports whether the table has no columns and no rows.
func (t RawTable) IsEmpty() bool {
	return len(t.Headers) == 0 && len(t.Rows) == 0
}

// CanonicalRecord is one normalized row. Value and Quantity may be NaN until
// aggregation fills them with zero.
type CanonicalRecord struct {
	Year       *int     `json:"year,omitempty"`
	Month      string   `json:"month,omitempty"`
	MonthIndex int      `json:"-"`
	TradeType  string   `json:"trade_type,omitempty"`
	Category   string   `json:"category,omitempty"`
	Value      float64  `json:"-"`
	Quantity   float64  `json:"-"`
	HSCode     string   `json:"hs_code,omitempty"`
	Cells      []string `json:"-"`
}

// Text returns the record's value for a text-keyed canonical field. Year is
// rendered as a decimal string, absent values as "".
func (r CanonicalRecord) Text(f Field) string {
	switch f {
	case FieldYear:
		if r.Year == nil {
			return ""
		}
		return itoa(*r.Year)
	case FieldMonth:
		return r.Month
	case FieldTradeType:
		return r.TradeType
	case FieldCategory:
		return r.Category
	case FieldHSCode:
		return r.HSCode
	case FieldValue:
		return formatMetric(r.Value)
	case FieldQuantity:
		return formatMetric(r.Quantity)
	}
	return ""
}

// Metric returns the numeric value of a metric field; NaN and non-metric fields
// yield NaN.
func (r CanonicalRecord) Metric(f Field) float64 {
	switch f {
	case FieldValue:
		return r.Value
	case FieldQuantity:
		return r.Quantity
	}
	return math.NaN()
}

// JSONValue returns the record's value for f as it appears in a JSON row:
// year as a number, metrics as numbers, text fields as strings. Absent years
// and unparseable metrics yield nil.
func (r CanonicalRecord) JSONValue(f Field) any {
	switch f {
	case FieldYear:
		if r.Year == nil {
			return nil
		}
		return *r.Year
	case FieldValue, FieldQuantity:
		v := r.Metric(f)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	}
	return r.Text(f)
}

// SchemaCapabilities is the set of canonical fields present after normalization.
type SchemaCapabilities map[Field]bool

// Has reports whether f is present.
func (c SchemaCapabilities) Has(f Field) bool { return c[f] }

// Missing returns the subset of fields that are absent, in the given order.
func (c SchemaCapabilities) Missing(fields ...Field) []Field {
	var missing []Field
	for _, f := range fields {
		if !c[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Present lists the present fields in canonical order.
func (c SchemaCapabilities) Present() []Field {
	var out []Field
	for _, f := range CanonicalFields {
		if c[f] {
			out = append(out, f)
		}
	}
	return out
}

// HSDetection records how the HS/tariff column was chosen.
type HSDetection string

const (
	HSDetectionNone      HSDetection = "none"
	HSDetectionAlias     HSDetection = "alias"
	HSDetectionHeuristic HSDetection = "heuristic"
	HSDetectionOverride  HSDetection = "override"
)

// CanonicalTable is the normalized in-memory dataset shared by every consumer.
// It is never mutated after construction; filters and overrides return copies.
type CanonicalTable struct {
	SourceHeaders []string           `json:"source_headers"`
	Records       []CanonicalRecord  `json:"-"`
	Capabilities  SchemaCapabilities `json:"capabilities"`
	SourceColumns map[Field]string   `json:"source_columns"`
	HSColumn      string             `json:"hs_column,omitempty"`
	HSDetection   HSDetection        `json:"hs_detection"`
	Encoding      string             `json:"encoding"`
}

// Len returns the number of records.
func (t CanonicalTable) Len() int { return len(t.Records) }

// WithRecords returns a shallow copy of t holding recs.
func (t CanonicalTable) WithRecords(recs []CanonicalRecord) CanonicalTable {
	out := t
	out.Records = recs
	return out
}

// SourceIndex returns the position of a source header, or -1.
func (t CanonicalTable) SourceIndex(header string) int {
	for i, h := range t.SourceHeaders {
		if h == header {
			return i
		}
	}
	return -1
}

// WithHSColumn re-derives HS codes from the named source column. An unknown
// column leaves the table unchanged and reports false.
func (t CanonicalTable) WithHSColumn(header string) (CanonicalTable, bool) {
	idx := t.SourceIndex(header)
	if idx < 0 {
		return t, false
	}
	if header == t.HSColumn && t.Capabilities.Has(FieldHSCode) {
		return t, true
	}
	out := t
	out.HSColumn = header
	out.HSDetection = HSDetectionOverride
	out.Capabilities = make(SchemaCapabilities, len(t.Capabilities)+1)
	for f, ok := range t.Capabilities {
		out.Capabilities[f] = ok
	}
	out.Capabilities[FieldHSCode] = true
	out.SourceColumns = make(map[Field]string, len(t.SourceColumns)+1)
	for f, h := range t.SourceColumns {
		out.SourceColumns[f] = h
	}
	out.SourceColumns[FieldHSCode] = header

	out.Records = make([]CanonicalRecord, len(t.Records))
	for i, rec := range t.Records {
		if idx < len(rec.Cells) {
			rec.HSCode = strings.TrimSpace(rec.Cells[idx])
		} else {
			rec.HSCode = ""
		}
		out.Records[i] = rec
	}
	return out, true
}

// AliasTable maps each canonical field to its accepted header spellings, in
// priority order.
type AliasTable map[Field][]string
