package processors

import (
	"math"
	"reflect"
	"testing"

	"github.com/username/customsdash/backend/src/config"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/utils"
)

func newTestNormalizer() SchemaNormalizer {
	return NewSchemaNormalizer(
		config.DefaultAliasTable(),
		config.DefaultHSColumnNames,
		utils.NewNumberCoercer(utils.DefaultCurrencyTokens),
		utils.NewMonthLocalizer("sq"),
	)
}

func normalize(t *testing.T, headers []string, rows ...[]string) models.CanonicalTable {
	t.Helper()
	table, _ := newTestNormalizer().Normalize(models.RawTable{Headers: headers, Rows: rows, Encoding: "utf-8"}, "")
	return table
}

func TestNormalizeAliasResolution(t *testing.T) {
	table := normalize(t, []string{"Vlera (€)", "Sasia", "Viti"}, []string{"1.234,56", "10", "2024"})

	want := map[models.Field]string{
		models.FieldValue:    "Vlera (€)",
		models.FieldQuantity: "Sasia",
		models.FieldYear:     "Viti",
	}
	if !reflect.DeepEqual(table.SourceColumns, want) {
		t.Errorf("SourceColumns = %v, want %v", table.SourceColumns, want)
	}
	for f := range want {
		if !table.Capabilities.Has(f) {
			t.Errorf("capability %s missing", f)
		}
	}
	rec := table.Records[0]
	if rec.Value != 1234.56 || rec.Quantity != 10 || rec.Year == nil || *rec.Year != 2024 {
		t.Errorf("record = %+v", rec)
	}
	if table.Capabilities.Has(models.FieldCategory) {
		t.Error("category should be absent")
	}
}

func TestNormalizeAliasPriority(t *testing.T) {
	// Both spellings present: the higher-priority alias wins whatever the
	// column order.
	for _, headers := range [][]string{
		{"Vlera", "Vlera (€)"},
		{"Vlera (€)", "Vlera"},
	} {
		table := normalize(t, headers, []string{"1", "2"})
		if got := table.SourceColumns[models.FieldValue]; got != "Vlera (€)" {
			t.Errorf("headers %q: value mapped from %q, want Vlera (€)", headers, got)
		}
	}
}

func TestNormalizeHeaderFolding(t *testing.T) {
	decomposed := "Lloji i tregtise\u0308" // e + combining diaeresis
	table := normalize(t,
		[]string{"\ufeff  VITI ", "muaji", decomposed, "KATEGORIA", "vlera   (€)"},
		[]string{"2024", "3", "Import", "", "10"},
	)
	for _, f := range []models.Field{models.FieldYear, models.FieldMonth, models.FieldTradeType, models.FieldCategory, models.FieldValue} {
		if !table.Capabilities.Has(f) {
			t.Errorf("capability %s missing; columns = %v", f, table.SourceColumns)
		}
	}
	if table.SourceHeaders[0] != "VITI" {
		t.Errorf("SourceHeaders[0] = %q, want VITI", table.SourceHeaders[0])
	}
	rec := table.Records[0]
	if rec.Month != "Mars" || rec.MonthIndex != 3 {
		t.Errorf("month = (%q, %d), want (Mars, 3)", rec.Month, rec.MonthIndex)
	}
	if rec.Category != "Pa kategori" {
		t.Errorf("blank category = %q, want Pa kategori", rec.Category)
	}
}

func TestNormalizeUnparseableValues(t *testing.T) {
	table := normalize(t, []string{"Viti", "Vlera"}, []string{"n/a", "abc"})
	rec := table.Records[0]
	if rec.Year != nil {
		t.Errorf("Year = %v, want nil", *rec.Year)
	}
	if !math.IsNaN(rec.Value) {
		t.Errorf("Value = %v, want NaN", rec.Value)
	}
}

func TestNormalizeHSAlias(t *testing.T) {
	table, hs := newTestNormalizer().Normalize(models.RawTable{
		Headers: []string{"Viti", "Përshkrimi", "Kodi HS", "Vlera"},
		Rows:    [][]string{{"2024", "Tekstil pambuku", " 5208 ", "1"}},
	}, "")
	if hs != "Kodi HS" || table.HSDetection != models.HSDetectionAlias {
		t.Fatalf("hs = %q (%s), want Kodi HS (alias)", hs, table.HSDetection)
	}
	if table.Records[0].HSCode != "5208" {
		t.Errorf("HSCode = %q, want 5208", table.Records[0].HSCode)
	}
}

func TestNormalizeHSHeuristic(t *testing.T) {
	table, hs := newTestNormalizer().Normalize(models.RawTable{
		Headers: []string{"Viti", "Nr", "Produkti", "Vlera"},
		Rows: [][]string{
			{"2024", "1", "Pambuk", "1"},
			{"2024", "2", "Leshi", "2"},
		},
	}, "")
	if hs != "Produkti" || table.HSDetection != models.HSDetectionHeuristic {
		t.Errorf("hs = %q (%s), want Produkti (heuristic)", hs, table.HSDetection)
	}
}

func TestNormalizeHSHeuristicHighCardinality(t *testing.T) {
	rows := [][]string{}
	for _, code := range []string{"0101", "0102", "0201", "0202", "0301", "0302"} {
		rows = append(rows, []string{"2024", code})
	}
	_, hs := newTestNormalizer().Normalize(models.RawTable{Headers: []string{"Viti", "Tarifa"}, Rows: rows}, "")
	if hs != "Tarifa" {
		t.Errorf("hs = %q, want Tarifa", hs)
	}
}

func TestNormalizeHSNone(t *testing.T) {
	table, hs := newTestNormalizer().Normalize(models.RawTable{
		Headers: []string{"Viti", "Lloji", "Kategoria", "Vlera (€)", "Nr"},
		Rows:    [][]string{{"2024", "Import", "Textiles", "1", "1"}},
	}, "")
	if hs != "" || table.HSDetection != models.HSDetectionNone {
		t.Errorf("hs = %q (%s), want none", hs, table.HSDetection)
	}
	if table.Capabilities.Has(models.FieldHSCode) {
		t.Error("hs_code capability should be absent")
	}
}

func TestNormalizeHSOverride(t *testing.T) {
	raw := models.RawTable{
		Headers: []string{"Kodi HS", "Kodi Kombëtar", "Vlera"},
		Rows:    [][]string{{"52", "5208.11", "1"}},
	}
	table, hs := newTestNormalizer().Normalize(raw, "kodi kombëtar")
	if hs != "Kodi Kombëtar" || table.HSDetection != models.HSDetectionOverride {
		t.Fatalf("hs = %q (%s), want override", hs, table.HSDetection)
	}
	if table.Records[0].HSCode != "5208.11" {
		t.Errorf("HSCode = %q", table.Records[0].HSCode)
	}

	// An override naming no column falls back to detection.
	_, hs = newTestNormalizer().Normalize(raw, "Nope")
	if hs != "Kodi HS" {
		t.Errorf("fallback hs = %q, want Kodi HS", hs)
	}
}

func TestWithHSColumn(t *testing.T) {
	table, _ := newTestNormalizer().Normalize(models.RawTable{
		Headers: []string{"Kodi HS", "Kapitulli", "Vlera"},
		Rows:    [][]string{{"5208", "52", "1"}},
	}, "")

	out, ok := table.WithHSColumn("Kapitulli")
	if !ok {
		t.Fatal("WithHSColumn(Kapitulli) failed")
	}
	if out.Records[0].HSCode != "52" || out.HSDetection != models.HSDetectionOverride {
		t.Errorf("override record = %+v, detection %s", out.Records[0], out.HSDetection)
	}
	if table.Records[0].HSCode != "5208" || table.SourceColumns[models.FieldHSCode] != "Kodi HS" {
		t.Error("WithHSColumn mutated the original table")
	}
	if _, ok := table.WithHSColumn("Missing"); ok {
		t.Error("WithHSColumn(Missing) should fail")
	}
}
