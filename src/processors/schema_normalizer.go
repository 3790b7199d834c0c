// backend/src/processors/schema_normalizer.go
package processors

import (
	"math"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/utils"
	"golang.org/x/text/unicode/norm"
)

// hsDistinctThreshold is the distinct-value count above which an unmapped
// column is guessed to hold tariff codes.
const hsDistinctThreshold = 5

type schemaNormalizerImpl struct {
	aliases    models.AliasTable
	hsNames    map[string]bool
	coercer    *utils.NumberCoercer
	months     *utils.MonthLocalizer
	noCategory string
}

// NewSchemaNormalizer creates a SchemaNormalizer. hsNames are the recognized
// spellings of the tariff-code header.
func NewSchemaNormalizer(aliases models.AliasTable, hsNames []string, coercer *utils.NumberCoercer, months *utils.MonthLocalizer) SchemaNormalizer {
	names := make(map[string]bool, len(hsNames))
	for _, n := range hsNames {
		names[foldHeader(n)] = true
	}
	return &schemaNormalizerImpl{
		aliases:    aliases,
		hsNames:    names,
		coercer:    coercer,
		months:     months,
		noCategory: months.Locale().NoCategory,
	}
}

// foldHeader is the comparison form of a header: NFC, lower case, single
// spaces, no BOM.
func foldHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = norm.NFC.String(h)
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

func (n *schemaNormalizerImpl) Normalize(raw models.RawTable, hsOverride string) (models.CanonicalTable, string) {
	headers := make([]string, len(raw.Headers))
	position := make(map[string]int, len(raw.Headers))
	for i, h := range raw.Headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := foldHeader(headers[i])
		if _, dup := position[key]; !dup {
			position[key] = i
		}
	}

	claimed := make(map[int]bool)
	columns := make(map[models.Field]int)
	for _, field := range models.CanonicalFields {
		if field == models.FieldHSCode {
			continue
		}
		for _, alias := range n.aliases[field] {
			idx, ok := position[foldHeader(alias)]
			if !ok || claimed[idx] {
				continue
			}
			columns[field] = idx
			claimed[idx] = true
			break
		}
	}

	hsIdx, detection := n.detectHSColumn(headers, position, claimed, raw.Rows, hsOverride)

	table := models.CanonicalTable{
		SourceHeaders: headers,
		Capabilities:  make(models.SchemaCapabilities, len(columns)+1),
		SourceColumns: make(map[models.Field]string, len(columns)+1),
		HSDetection:   detection,
		Encoding:      raw.Encoding,
	}
	for field, idx := range columns {
		table.Capabilities[field] = true
		table.SourceColumns[field] = headers[idx]
	}
	if hsIdx >= 0 {
		table.Capabilities[models.FieldHSCode] = true
		table.SourceColumns[models.FieldHSCode] = headers[hsIdx]
		table.HSColumn = headers[hsIdx]
	}

	table.Records = make([]models.CanonicalRecord, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		table.Records = append(table.Records, n.normalizeRow(row, columns, hsIdx))
	}

	if missing := table.Capabilities.Missing(models.CanonicalFields...); len(missing) > 0 {
		logger.L.Info("Schema normalized with missing canonical fields", "missing", missing, "hsDetection", detection)
	} else {
		logger.L.Debug("Schema normalized", "records", len(table.Records), "hsColumn", table.HSColumn)
	}
	return table, table.HSColumn
}

func (n *schemaNormalizerImpl) normalizeRow(row []string, columns map[models.Field]int, hsIdx int) models.CanonicalRecord {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rec := models.CanonicalRecord{
		Value:    math.NaN(),
		Quantity: math.NaN(),
		Cells:    row,
	}
	if idx, ok := columns[models.FieldYear]; ok {
		if y, ok := n.coercer.CoerceInt(cell(idx)); ok {
			rec.Year = &y
		}
	}
	if idx, ok := columns[models.FieldMonth]; ok {
		rec.Month, rec.MonthIndex = n.months.Localize(cell(idx))
	}
	if idx, ok := columns[models.FieldTradeType]; ok {
		rec.TradeType = cell(idx)
	}
	if idx, ok := columns[models.FieldCategory]; ok {
		rec.Category = cell(idx)
		if rec.Category == "" {
			rec.Category = n.noCategory
		}
	}
	if idx, ok := columns[models.FieldValue]; ok {
		rec.Value = n.coercer.CoerceString(cell(idx))
	}
	if idx, ok := columns[models.FieldQuantity]; ok {
		rec.Quantity = n.coercer.CoerceString(cell(idx))
	}
	if hsIdx >= 0 {
		rec.HSCode = cell(hsIdx)
	}
	return rec
}

// detectHSColumn resolves the tariff-code column: a matching override, then
// the first header in the known-name list, then the first unclaimed column
// that looks categorical.
func (n *schemaNormalizerImpl) detectHSColumn(headers []string, position map[string]int, claimed map[int]bool, rows [][]string, override string) (int, models.HSDetection) {
	if strings.TrimSpace(override) != "" {
		if idx, ok := position[foldHeader(override)]; ok {
			return idx, models.HSDetectionOverride
		}
		logger.L.Warn("HS column override does not name a source column; falling back to detection", "override", override)
	}

	for i, h := range headers {
		if n.hsNames[foldHeader(h)] {
			return i, models.HSDetectionAlias
		}
	}

	for i := range headers {
		if claimed[i] {
			continue
		}
		if n.looksCategorical(rows, i) {
			logger.L.Info("HS column guessed heuristically", "column", headers[i])
			return i, models.HSDetectionHeuristic
		}
	}
	return -1, models.HSDetectionNone
}

func (n *schemaNormalizerImpl) looksCategorical(rows [][]string, idx int) bool {
	distinct := make(map[string]struct{})
	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		if math.IsNaN(n.coercer.CoerceString(v)) {
			return true
		}
		distinct[v] = struct{}{}
		if len(distinct) > hsDistinctThreshold {
			return true
		}
	}
	return false
}
