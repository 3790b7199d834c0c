package models

// FilterRequest is an explicit, immutable set of dashboard selections. Zero
// values mean "no filter" on that axis.
type FilterRequest struct {
	Year       *int     `json:"year,omitempty"`
	TradeType  string   `json:"trade_type,omitempty"`
	Categories []string `json:"categories,omitempty"`
	HSCodes    []string `json:"hs_codes,omitempty"`
}

// WithoutYear returns a copy of the request with the year predicate removed.
func (r FilterRequest) WithoutYear() FilterRequest {
	out := r
	out.Year = nil
	return out
}

// DashboardRequest carries everything one dashboard render needs.
type DashboardRequest struct {
	Filter    FilterRequest `json:"filter"`
	Metric    Field         `json:"metric"`
	TopN      int           `json:"top_n"`
	LimitTopK bool          `json:"limit_top_k"`
	HSColumn  string        `json:"hs_column,omitempty"`
}

// FilterOptions lists the selectable values of each filter axis.
type FilterOptions struct {
	Years      []int    `json:"years"`
	TradeTypes []string `json:"trade_types"`
	Categories []string `json:"categories"`
	HSCodes    []string `json:"hs_codes"`
}
