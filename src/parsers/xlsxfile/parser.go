// backend/src/parsers/xlsxfile/parser.go
package xlsxfile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
	"github.com/xuri/excelize/v2"
)

// EncodingName is reported as RawTable.Encoding for workbook sources.
const EncodingName = "xlsx"

var errNoSheets = errors.New("workbook has no sheets")

// XLSXParser reads the first sheet of a workbook as a raw table.
type XLSXParser struct{}

func NewParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(file io.Reader) (models.RawTable, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.L.Warn("Failed to close workbook", "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.RawTable{}, errNoSheets
	}
	sheet := sheets[0]

	grid, err := f.GetRows(sheet)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read rows of sheet '%s': %w", sheet, err)
	}

	// Leading blank rows are common above the header in exported workbooks.
	start := 0
	for start < len(grid) && isBlankRow(grid[start]) {
		start++
	}
	if start == len(grid) {
		return models.RawTable{}, fmt.Errorf("sheet '%s' has no header row", sheet)
	}

	header := make([]string, len(grid[start]))
	for i, h := range grid[start] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(grid)-start-1)
	for _, r := range grid[start+1:] {
		if isBlankRow(r) {
			continue
		}
		row := make([]string, len(header))
		copy(row, r)
		rows = append(rows, row)
	}

	logger.L.Debug("Workbook parsed", "sheet", sheet, "columns", len(header), "rows", len(rows))
	return models.RawTable{Headers: header, Rows: rows, Encoding: EncodingName}, nil
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
