// backend/src/processors/chart_processor.go
package processors

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/utils"
)

// SchemaIncompleteError reports a chart that cannot be built because the
// dataset lacks some of the fields it needs.
type SchemaIncompleteError struct {
	Feature string
	Missing []models.Field
}

func (e *SchemaIncompleteError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: dataset is missing %s", e.Feature, strings.Join(names, ", "))
}

// ChartInput is everything a chart module reads.
type ChartInput struct {
	View           models.CanonicalTable
	Yearless       models.CanonicalTable
	Request        models.DashboardRequest
	OtherLabel     string
	TopKCategories int
}

// ChartModule is one dashboard chart: the fields it needs and how to build it.
type ChartModule struct {
	ID         string
	Title      string
	Kind       string
	Required   []models.Field
	UsesMetric bool
	Build      func(in ChartInput) models.ChartTable
}

type chartProcessorImpl struct {
	modules        []ChartModule
	otherLabel     string
	topKCategories int
}

// NewChartProcessor creates the processor with the standard dashboard modules.
func NewChartProcessor(otherLabel string, topKCategories int) ChartProcessor {
	if otherLabel == "" {
		otherLabel = DefaultOtherLabel
	}
	return &chartProcessorImpl{
		modules:        DefaultChartModules(),
		otherLabel:     otherLabel,
		topKCategories: topKCategories,
	}
}

func (p *chartProcessorImpl) Modules() []ChartModule {
	return p.modules
}

// CheckRequirements returns a SchemaIncompleteError when caps lacks any field
// the module needs for metric.
func CheckRequirements(m ChartModule, caps models.SchemaCapabilities, metric models.Field) error {
	required := m.Required
	if m.UsesMetric {
		required = append(append([]models.Field(nil), required...), metric)
	}
	if missing := caps.Missing(required...); len(missing) > 0 {
		return &SchemaIncompleteError{Feature: m.ID, Missing: missing}
	}
	return nil
}

func (p *chartProcessorImpl) Build(view, yearless models.CanonicalTable, req models.DashboardRequest) ([]models.ChartTable, []models.SkippedChart) {
	in := ChartInput{
		View:           view,
		Yearless:       yearless,
		Request:        req,
		OtherLabel:     p.otherLabel,
		TopKCategories: p.topKCategories,
	}

	charts := make([]models.ChartTable, 0, len(p.modules))
	var skipped []models.SkippedChart
	for _, m := range p.modules {
		if err := CheckRequirements(m, view.Capabilities, req.Metric); err != nil {
			sie := err.(*SchemaIncompleteError)
			logger.L.Info("Chart skipped", "chart", m.ID, "missing", sie.Missing)
			skipped = append(skipped, models.SkippedChart{ID: m.ID, Missing: sie.Missing, Note: sie.Error()})
			continue
		}
		table := m.Build(in)
		table.ID, table.Title, table.Kind = m.ID, m.Title, m.Kind
		if m.UsesMetric {
			table.Metric = req.Metric
		}
		charts = append(charts, table)
	}
	return charts, skipped
}

// DefaultChartModules returns the dashboard's charts in display order.
func DefaultChartModules() []ChartModule {
	return []ChartModule{
		{
			ID: "monthly_trend", Title: "Monthly trend by category", Kind: "line",
			Required: []models.Field{models.FieldMonth, models.FieldCategory}, UsesMetric: true,
			Build: buildMonthlyTrend,
		},
		{
			ID: "yearly_totals", Title: "Yearly totals by trade type", Kind: "grouped_bar",
			Required: []models.Field{models.FieldYear, models.FieldTradeType}, UsesMetric: true,
			Build: buildYearlyTotals,
		},
		{
			ID: "import_vs_export", Title: "Category share within each trade type", Kind: "bar",
			Required: []models.Field{models.FieldCategory, models.FieldTradeType}, UsesMetric: true,
			Build: buildImportVsExport,
		},
		{
			ID: "category_share", Title: "Category share", Kind: "pie",
			Required: []models.Field{models.FieldCategory}, UsesMetric: true,
			Build: buildCategoryShare,
		},
		{
			ID: "hs_ranking", Title: "Top HS codes", Kind: "ranking",
			Required: []models.Field{models.FieldHSCode}, UsesMetric: true,
			Build: buildHSRanking,
		},
		{
			ID: "summary", Title: "Totals by trade type", Kind: "kpi",
			Required: []models.Field{models.FieldTradeType},
			Build:    buildSummary,
		},
	}
}

func buildMonthlyTrend(in ChartInput) models.ChartTable {
	keys := []models.Field{models.FieldMonth, models.FieldCategory}
	rows := GroupSum(in.View, keys, in.Request.Metric)

	order := make(map[string]int)
	for _, rec := range in.View.Records {
		if _, ok := order[rec.Month]; !ok {
			order[rec.Month] = rec.MonthIndex
		}
	}
	// Unknown months (index 0) go last.
	rank := func(label string) int {
		if i := order[label]; i > 0 {
			return i
		}
		return 13
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rank(rows[i].Key[string(models.FieldMonth)]) < rank(rows[j].Key[string(models.FieldMonth)])
	})
	return models.ChartTable{KeyFields: fieldNames(keys), Rows: rows}
}

func buildYearlyTotals(in ChartInput) models.ChartTable {
	keys := []models.Field{models.FieldYear, models.FieldTradeType}
	rows := GroupSum(in.Yearless, keys, in.Request.Metric)
	yearOf := func(r models.AggregateRow) int {
		y, err := strconv.Atoi(r.Key[string(models.FieldYear)])
		if err != nil {
			return int(^uint(0) >> 1)
		}
		return y
	}
	sort.SliceStable(rows, func(i, j int) bool { return yearOf(rows[i]) < yearOf(rows[j]) })
	return models.ChartTable{KeyFields: fieldNames(keys), Rows: rows}
}

func buildImportVsExport(in ChartInput) models.ChartTable {
	keys := []models.Field{models.FieldCategory, models.FieldTradeType}
	rows := GroupSum(in.View, keys, in.Request.Metric)
	rows = PercentOfPartition(rows, string(models.FieldTradeType))
	return models.ChartTable{
		KeyFields:   fieldNames(keys),
		Rows:        rows,
		HasPercent:  true,
		Partitioned: string(models.FieldTradeType),
	}
}

func buildCategoryShare(in ChartInput) models.ChartTable {
	keys := []models.Field{models.FieldCategory}
	rows := SortByValueDesc(GroupSum(in.View, keys, in.Request.Metric))
	if in.Request.LimitTopK {
		rows = TopNWithOtherLabel(rows, in.TopKCategories, string(models.FieldCategory), in.OtherLabel)
	}
	rows = PercentOfPartition(rows, "")
	return models.ChartTable{KeyFields: fieldNames(keys), Rows: rows, HasPercent: true}
}

// buildHSRanking ranks HS codes within each trade type. Each code is labeled
// with the category it trades under most, when categories are known; the
// Other bucket takes the label of the first code it collapses.
func buildHSRanking(in ChartInput) models.ChartTable {
	hsKey := string(models.FieldHSCode)
	tradeKey := string(models.FieldTradeType)
	hasTrade := in.View.Capabilities.Has(models.FieldTradeType)

	keys := []models.Field{models.FieldHSCode}
	if hasTrade {
		keys = append(keys, models.FieldTradeType)
	}
	grouped := GroupSum(in.View, keys, in.Request.Metric)

	if in.View.Capabilities.Has(models.FieldCategory) {
		pairs := GroupSum(in.View, []models.Field{models.FieldHSCode, models.FieldCategory}, in.Request.Metric)
		dominant := DominantLabel(pairs, hsKey, string(models.FieldCategory))
		for i := range grouped {
			grouped[i].Label = dominant[grouped[i].Key[hsKey]]
		}
	}

	var rows []models.AggregateRow
	for _, part := range PartitionRows(grouped, tradeKey) {
		top := TopNWithOtherLabel(SortByValueDesc(part.Rows), in.Request.TopN, hsKey, in.OtherLabel)
		rows = append(rows, PercentOfPartition(top, tradeKey)...)
	}
	if rows == nil {
		rows = []models.AggregateRow{}
	}

	table := models.ChartTable{KeyFields: fieldNames(keys), Rows: rows, HasPercent: true}
	if hasTrade {
		table.Partitioned = tradeKey
	}
	return table
}

// buildSummary reports record counts and, where present, value and quantity
// totals per trade type.
func buildSummary(in ChartInput) models.ChartTable {
	type totals struct {
		records  float64
		value    float64
		quantity float64
	}
	var order []string
	byTrade := make(map[string]*totals)
	for _, rec := range in.View.Records {
		t, ok := byTrade[rec.TradeType]
		if !ok {
			t = &totals{}
			byTrade[rec.TradeType] = t
			order = append(order, rec.TradeType)
		}
		t.records++
		t.value += utils.FillNaN(rec.Value)
		t.quantity += utils.FillNaN(rec.Quantity)
	}

	caps := in.View.Capabilities
	tradeKey := string(models.FieldTradeType)
	rows := make([]models.AggregateRow, 0, len(order)*3)
	for _, trade := range order {
		t := byTrade[trade]
		rows = append(rows, models.AggregateRow{Key: map[string]string{tradeKey: trade, "measure": "records"}, Value: t.records})
		if caps.Has(models.FieldValue) {
			rows = append(rows, models.AggregateRow{Key: map[string]string{tradeKey: trade, "measure": string(models.FieldValue)}, Value: t.value})
		}
		if caps.Has(models.FieldQuantity) {
			rows = append(rows, models.AggregateRow{Key: map[string]string{tradeKey: trade, "measure": string(models.FieldQuantity)}, Value: t.quantity})
		}
	}
	return models.ChartTable{KeyFields: []string{tradeKey, "measure"}, Rows: rows}
}

func fieldNames(fields []models.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
