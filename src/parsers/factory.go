// backend/src/parsers/factory.go
package parsers

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/parsers/csvfile"
	"github.com/username/customsdash/backend/src/parsers/xlsxfile"
)

const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
)

// zipMagic starts every .xlsx file.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// Options configures the text parser.
type Options struct {
	Encodings []string
	Delimiter rune
}

func GetParser(kind string, opts Options) (Parser, error) {
	switch kind {
	case KindCSV:
		return csvfile.NewParser(opts.Encodings, opts.Delimiter), nil
	case KindXLSX:
		return xlsxfile.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source kind: %s", kind)
	}
}

// DetectKind picks the parser kind from the source's name and leading bytes.
func DetectKind(src models.Source) string {
	if bytes.HasPrefix(src.Data, zipMagic) {
		return KindXLSX
	}
	name := src.Name
	if name == "" {
		name = src.Path
	}
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return KindXLSX
	}
	return KindCSV
}
