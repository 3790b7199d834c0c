// backend/src/parsers/loader.go
package parsers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/parsers/csvfile"
)

// LoadError reports a source that no candidate decoder could read. Callers
// must stop the pipeline; the accompanying table is always empty.
type LoadError struct {
	Source string
	Tried  []string
	Err    error
}

func (e *LoadError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("could not load %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("could not load %s (tried %s): %v", e.Source, strings.Join(e.Tried, ", "), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load turns a source into a RawTable, dispatching on the detected kind.
func Load(src models.Source, opts Options) (models.RawTable, error) {
	name := src.Name
	if name == "" {
		name = src.Path
	}
	kind := DetectKind(src)

	parser, err := GetParser(kind, opts)
	if err != nil {
		return models.RawTable{}, &LoadError{Source: name, Err: err}
	}

	table, err := parser.Parse(bytes.NewReader(src.Data))
	if err != nil {
		loadErr := &LoadError{Source: name, Err: err}
		var attempts *csvfile.AttemptsError
		if errors.As(err, &attempts) {
			loadErr.Tried = attempts.Tried()
			if inner := attempts.Unwrap(); inner != nil {
				loadErr.Err = inner
			}
		} else {
			loadErr.Tried = []string{kind}
		}
		logger.L.Error("Source could not be loaded", "source", name, "kind", kind, "tried", loadErr.Tried, "error", loadErr.Err)
		return models.RawTable{}, loadErr
	}

	logger.L.Info("Source loaded", "source", name, "kind", kind, "encoding", table.Encoding, "columns", len(table.Headers), "rows", len(table.Rows))
	return table, nil
}
