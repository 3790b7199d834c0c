// backend/src/services/export_service.go
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/processors"
	"github.com/username/customsdash/backend/src/security/validation"
	"github.com/username/customsdash/backend/src/utils"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name a workbook accepts.
const maxSheetName = 31

// ExportCSV writes the filtered view with its original source columns followed
// by the canonical columns the normalizer derived. A canonical column is left
// out when a source header already carries its name.
func (s *datasetServiceImpl) ExportCSV(ctx context.Context, datasetID string, filter models.FilterRequest, hsColumn string, w io.Writer) error {
	entry, err := s.dataset(ctx, datasetID)
	if err != nil {
		return err
	}
	table, err := withHSColumn(entry.Table, hsColumn)
	if err != nil {
		return err
	}
	view := processors.ApplyFilters(table, filter)

	derived := derivedColumns(view)
	sourceCount := len(view.SourceHeaders)

	cw := csv.NewWriter(w)
	header := make([]string, 0, sourceCount+len(derived))
	for _, h := range view.SourceHeaders {
		header = append(header, validation.SanitizeCell(h))
	}
	for _, f := range derived {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range view.Records {
		for i := 0; i < sourceCount; i++ {
			row[i] = ""
			if i < len(rec.Cells) {
				row[i] = validation.SanitizeCell(rec.Cells[i])
			}
		}
		for i, f := range derived {
			row[sourceCount+i] = validation.SanitizeCell(rec.Text(f))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	logger.FromContext(ctx).Info("CSV export written", "datasetID", entry.ID, "rows", view.Len())
	return nil
}

// derivedColumns lists the present canonical fields whose name no source
// header already uses.
func derivedColumns(table models.CanonicalTable) []models.Field {
	var out []models.Field
	for _, f := range table.Capabilities.Present() {
		taken := false
		for _, h := range table.SourceHeaders {
			if strings.EqualFold(strings.TrimSpace(h), string(f)) {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, f)
		}
	}
	return out
}

// ExportXLSX writes one chart table as a single-sheet workbook.
func (s *datasetServiceImpl) ExportXLSX(ctx context.Context, datasetID string, req models.DashboardRequest, chartID string, w io.Writer) error {
	result, err := s.Dashboard(ctx, datasetID, req)
	if err != nil {
		return err
	}

	var chart *models.ChartTable
	for i := range result.Charts {
		if result.Charts[i].ID == chartID {
			chart = &result.Charts[i]
			break
		}
	}
	if chart == nil {
		for _, sk := range result.Skipped {
			if sk.ID == chartID {
				return fmt.Errorf("%w: %s", ErrChartNotFound, sk.Note)
			}
		}
		return fmt.Errorf("%w: %q", ErrChartNotFound, chartID)
	}

	f, err := buildChartWorkbook(*chart)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.L.Warn("Failed to close workbook", "error", cerr)
		}
	}()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	logger.FromContext(ctx).Info("XLSX export written", "datasetID", result.DatasetID, "chart", chartID, "rows", len(chart.Rows))
	return nil
}

func buildChartWorkbook(chart models.ChartTable) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := chart.ID
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	hasLabel := false
	for _, r := range chart.Rows {
		if r.Label != "" {
			hasLabel = true
			break
		}
	}

	header := make([]interface{}, 0, len(chart.KeyFields)+3)
	for _, k := range chart.KeyFields {
		header = append(header, k)
	}
	header = append(header, "value")
	if chart.HasPercent {
		header = append(header, "percent_of_group")
	}
	if hasLabel {
		header = append(header, "label")
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, r := range chart.Rows {
		values := make([]interface{}, 0, len(header))
		for _, k := range chart.KeyFields {
			values = append(values, validation.SanitizeCell(r.Key[k]))
		}
		values = append(values, r.Value)
		if chart.HasPercent {
			values = append(values, utils.RoundFloat(r.Percent, 2))
		}
		if hasLabel {
			values = append(values, validation.SanitizeCell(r.Label))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// IsClientError reports whether err is caused by the request rather than the
// server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrLoadFailed) || errors.Is(err, ErrChartNotFound)
}
