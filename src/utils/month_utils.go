package utils

import (
	"math"
	"strings"
)

// Locale holds the display strings of one dashboard language.
type Locale struct {
	Code       string
	Months     [12]string
	NoData     string
	NoCategory string
}

var locales = map[string]Locale{
	"sq": {
		Code: "sq",
		Months: [12]string{
			"Janar", "Shkurt", "Mars", "Prill", "Maj", "Qershor",
			"Korrik", "Gusht", "Shtator", "Tetor", "Nëntor", "Dhjetor",
		},
		NoData:     "Pa të dhëna",
		NoCategory: "Pa kategori",
	},
	"en": {
		Code: "en",
		Months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		NoData:     "No data",
		NoCategory: "No category",
	},
}

// DefaultLocale is used when an unknown locale code is configured.
const DefaultLocale = "sq"

// LookupLocale returns the locale for code, falling back to DefaultLocale.
func LookupLocale(code string) (Locale, bool) {
	if l, ok := locales[strings.ToLower(strings.TrimSpace(code))]; ok {
		return l, true
	}
	return locales[DefaultLocale], false
}

// MonthLocalizer maps month codes to display names.
type MonthLocalizer struct {
	locale Locale
	index  map[string]int
}

// NewMonthLocalizer builds a localizer for the given locale code.
func NewMonthLocalizer(code string) *MonthLocalizer {
	l, _ := LookupLocale(code)
	idx := make(map[string]int, 24)
	// Labels from either language still sort into calendar order.
	for _, other := range locales {
		for i, name := range other.Months {
			idx[strings.ToLower(name)] = i + 1
		}
	}
	return &MonthLocalizer{locale: l, index: idx}
}

// Locale returns the localizer's locale.
func (m *MonthLocalizer) Locale() Locale { return m.locale }

// Localize returns the display label for raw and its calendar index (1-12, or 0
// when the label is not a known month). Integers 1-12 map to month names;
// other non-empty input is returned trimmed; empty input yields the locale's
// "no data" label.
func (m *MonthLocalizer) Localize(raw string) (string, int) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return m.locale.NoData, 0
	}
	f := CoerceNumber(s)
	if !math.IsNaN(f) && f == math.Trunc(f) && f >= 1 && f <= 12 {
		i := int(f)
		return m.locale.Months[i-1], i
	}
	return s, m.index[strings.ToLower(s)]
}

// LocalizeMonth localizes raw with the default locale.
func LocalizeMonth(raw string) string {
	label, _ := defaultMonths.Localize(raw)
	return label
}

var defaultMonths = NewMonthLocalizer(DefaultLocale)
