// backend/src/parsers/csvfile/parser.go
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
)

// Attempt records one failed decode/parse under a candidate encoding.
type Attempt struct {
	Encoding string
	Err      error
}

// AttemptsError is returned when no candidate encoding produced a table.
type AttemptsError struct {
	Attempts []Attempt
}

func (e *AttemptsError) Error() string {
	if len(e.Attempts) == 0 {
		return "csv: no candidate encodings configured"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("csv: all %d candidate encodings failed, last (%s): %v", len(e.Attempts), last.Encoding, last.Err)
}

// Unwrap returns the last underlying failure.
func (e *AttemptsError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Tried lists the encodings in the order they were attempted.
func (e *AttemptsError) Tried() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Encoding
	}
	return out
}

var errEmptySource = errors.New("source is empty")

// CSVParser reads delimited text, trying each candidate encoding in order.
type CSVParser struct {
	encodings []string
	delimiter rune
}

// NewParser creates a parser for the given ordered encodings and delimiter.
// A zero delimiter means ','.
func NewParser(encodings []string, delimiter rune) *CSVParser {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVParser{encodings: append([]string(nil), encodings...), delimiter: delimiter}
}

// Parse reads the whole source and returns the first successful parse.
func (p *CSVParser) Parse(file io.Reader) (models.RawTable, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("csv: read source: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes is Parse over an in-memory buffer.
func (p *CSVParser) ParseBytes(data []byte) (models.RawTable, error) {
	failures := &AttemptsError{}
	for _, name := range p.encodings {
		table, err := p.parseAs(name, data)
		if err == nil {
			if len(failures.Attempts) > 0 {
				logger.L.Info("CSV decoded after encoding fallback", "encoding", table.Encoding, "failedAttempts", len(failures.Attempts))
			}
			return table, nil
		}
		logger.L.Debug("CSV parse attempt failed", "encoding", name, "error", err)
		failures.Attempts = append(failures.Attempts, Attempt{Encoding: name, Err: err})
	}
	return models.RawTable{}, failures
}

func (p *CSVParser) parseAs(encodingName string, data []byte) (models.RawTable, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return models.RawTable{}, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return models.RawTable{}, errEmptySource
	}

	text, err := enc.decode(data)
	if err != nil {
		return models.RawTable{}, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = p.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.RawTable{}, errEmptySource
	}
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header = cleanHeaders(header)

	records, err := reader.ReadAll()
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	var reshaped int
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		if len(record) != len(header) {
			reshaped++
			record = fitWidth(record, len(header))
		}
		rows = append(rows, record)
	}
	if reshaped > 0 {
		logger.L.Warn("CSV rows did not match header width and were padded or truncated", "rows", reshaped, "width", len(header))
	}

	return models.RawTable{Headers: header, Rows: rows, Encoding: enc.name}, nil
}

// cleanHeaders trims header cells and drops a UTF-8 BOM that survived a
// non-UTF-8 decode.
func cleanHeaders(h []string) []string {
	out := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
			c = strings.TrimPrefix(c, "\u00ef\u00bb\u00bf")
		}
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func fitWidth(record []string, width int) []string {
	if len(record) > width {
		return record[:width]
	}
	out := make([]string, width)
	copy(out, record)
	return out
}
