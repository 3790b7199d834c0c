// backend/src/security/validation/sanitizers.go
package validation

import (
	"math"
	"strings"
	"unicode"

	"github.com/username/customsdash/backend/src/utils"
)

// SanitizeForFormulaInjection prepends a single quote if the string starts with a formula character.
// This makes most spreadsheet software treat it as text.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 0 {
		firstChar := rune(trimmed[0])
		if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' || firstChar == '\t' || firstChar == '\r' {
			return "'" + s // keep the original spacing
		}
	}
	return s
}

// SanitizeCell is SanitizeForFormulaInjection for exported table cells.
// Numeric cells such as "-1.234,50" are left alone so exports stay numeric.
func SanitizeCell(s string) string {
	if !math.IsNaN(utils.CoerceNumber(s)) {
		return s
	}
	return SanitizeForFormulaInjection(s)
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
