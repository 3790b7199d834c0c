// backend/src/processors/filter_processor.go
package processors

import (
	"sort"
	"strings"

	"github.com/username/customsdash/backend/src/models"
)

// ApplyFilters returns the records matching every active predicate of req.
// A predicate whose field the table lacks is skipped, and empty selections
// mean "no filter" on that axis.
func ApplyFilters(table models.CanonicalTable, req models.FilterRequest) models.CanonicalTable {
	caps := table.Capabilities

	useYear := req.Year != nil && caps.Has(models.FieldYear)
	tradeType := strings.TrimSpace(req.TradeType)
	useTrade := tradeType != "" && caps.Has(models.FieldTradeType)
	categories := toSet(req.Categories)
	useCategory := len(categories) > 0 && caps.Has(models.FieldCategory)
	hsCodes := toSet(req.HSCodes)
	useHS := len(hsCodes) > 0 && caps.Has(models.FieldHSCode)

	out := make([]models.CanonicalRecord, 0, len(table.Records))
	for _, rec := range table.Records {
		if useYear && (rec.Year == nil || *rec.Year != *req.Year) {
			continue
		}
		if useTrade && rec.TradeType != tradeType {
			continue
		}
		if useCategory && !categories[rec.Category] {
			continue
		}
		if useHS && !hsCodes[rec.HSCode] {
			continue
		}
		out = append(out, rec)
	}
	return table.WithRecords(out)
}

// FilterOptions lists the sorted distinct values of each filter axis present
// in the table.
func FilterOptions(table models.CanonicalTable) models.FilterOptions {
	caps := table.Capabilities
	years := make(map[int]struct{})
	trades := make(map[string]struct{})
	cats := make(map[string]struct{})
	codes := make(map[string]struct{})

	for _, rec := range table.Records {
		if caps.Has(models.FieldYear) && rec.Year != nil {
			years[*rec.Year] = struct{}{}
		}
		if caps.Has(models.FieldTradeType) && rec.TradeType != "" {
			trades[rec.TradeType] = struct{}{}
		}
		if caps.Has(models.FieldCategory) && rec.Category != "" {
			cats[rec.Category] = struct{}{}
		}
		if caps.Has(models.FieldHSCode) && rec.HSCode != "" {
			codes[rec.HSCode] = struct{}{}
		}
	}

	opts := models.FilterOptions{
		Years:      make([]int, 0, len(years)),
		TradeTypes: sortedKeys(trades),
		Categories: sortedKeys(cats),
		HSCodes:    sortedKeys(codes),
	}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	sort.Ints(opts.Years)
	return opts
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
