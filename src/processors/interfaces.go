package processors

import (
	"github.com/username/customsdash/backend/src/models"
)

// SchemaNormalizer maps a raw table onto the canonical schema.
type SchemaNormalizer interface {
	// Normalize returns the canonical table and the name of the source column
	// used as the HS/tariff code ("" when none was detected).
	Normalize(raw models.RawTable, hsOverride string) (models.CanonicalTable, string)
}

// ChartProcessor runs every chart module against a filtered view.
type ChartProcessor interface {
	// Build renders the chart tables for req. yearless is the view filtered by
	// every predicate except year, used by the year-over-year chart.
	Build(view, yearless models.CanonicalTable, req models.DashboardRequest) ([]models.ChartTable, []models.SkippedChart)
	Modules() []ChartModule
}
