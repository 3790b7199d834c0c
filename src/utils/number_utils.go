package utils

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultCurrencyTokens are stripped from numeric cells before parsing.
var DefaultCurrencyTokens = []string{"€", "EUR", "Lekë", "Leke", "Lek", "ALL"}

// NumberCoercer turns raw cells into float64 values. Unparseable input becomes
// NaN; it never panics.
type NumberCoercer struct {
	tokens *regexp.Regexp
}

// NewNumberCoercer builds a coercer stripping the given currency/unit tokens,
// matched case-insensitively. Longer tokens are tried first so "Lekë" is not
// left as "ë" after stripping "Lek".
func NewNumberCoercer(tokens []string) *NumberCoercer {
	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })

	c := &NumberCoercer{}
	if len(cleaned) > 0 {
		quoted := make([]string, len(cleaned))
		for i, t := range cleaned {
			quoted[i] = regexp.QuoteMeta(t)
		}
		c.tokens = regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
	}
	return c
}

var defaultCoercer = NewNumberCoercer(DefaultCurrencyTokens)

// CoerceNumber converts a raw cell using the default currency tokens.
func CoerceNumber(raw any) float64 {
	return defaultCoercer.Coerce(raw)
}

// Coerce converts raw into a float64.
//
//   - nil → NaN
//   - numeric Go types → float64
//   - strings: currency tokens and non-breaking spaces removed, then the
//     decimal separator is disambiguated (see normalizeSeparators)
//
// Anything else, or a string that still fails to parse, yields NaN.
func (c *NumberCoercer) Coerce(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return math.NaN()
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case *string:
		if v == nil {
			return math.NaN()
		}
		return c.CoerceString(*v)
	case string:
		return c.CoerceString(v)
	}
	return math.NaN()
}

// CoerceString is Coerce for string input.
func (c *NumberCoercer) CoerceString(s string) float64 {
	s = c.clean(s)
	if s == "" {
		return math.NaN()
	}
	s = normalizeSeparators(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (c *NumberCoercer) clean(s string) string {
	// "Â " is how a UTF-8 NBSP reads after a Latin-1 round trip.
	s = strings.ReplaceAll(s, "\u00c2\u00a0", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, "\u202f", "")
	if c.tokens != nil {
		s = c.tokens.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// normalizeSeparators rewrites s into Go float syntax. A single comma placed
// after the last period marks the European style "1.234,56"; in every other
// case commas are thousands separators.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if strings.Count(s, ",") == 1 && lastDot >= 0 && lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

// FillNaN returns 0 for NaN/Inf and v otherwise.
func FillNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CoerceInt parses s as a number and reports whether it is a whole number.
func (c *NumberCoercer) CoerceInt(s string) (int, bool) {
	f := c.CoerceString(s)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
