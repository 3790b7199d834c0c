package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/services"
)

const (
	defaultRecordsLimit = 1000
	maxRecordsLimit     = 10000
)

// parseFilterRequest reads year, trade_type, category and hs_code.
// category and hs_code may repeat.
func parseFilterRequest(q url.Values) (models.FilterRequest, error) {
	var req models.FilterRequest
	if y := strings.TrimSpace(q.Get("year")); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return req, fmt.Errorf("%w: year must be an integer", services.ErrInvalidRequest)
		}
		req.Year = &year
	}
	req.TradeType = strings.TrimSpace(q.Get("trade_type"))
	req.Categories = multiValue(q, "category")
	req.HSCodes = multiValue(q, "hs_code")
	return req, nil
}

// parseDashboardRequest reads the filter plus metric, top_n, limit_top_k and
// hs_column. limitTopKDefault applies when limit_top_k is absent.
func parseDashboardRequest(q url.Values, limitTopKDefault bool) (models.DashboardRequest, error) {
	filter, err := parseFilterRequest(q)
	if err != nil {
		return models.DashboardRequest{}, err
	}
	req := models.DashboardRequest{
		Filter:    filter,
		LimitTopK: limitTopKDefault,
		HSColumn:  strings.TrimSpace(q.Get("hs_column")),
	}

	if m := strings.TrimSpace(q.Get("metric")); m != "" {
		field, ok := models.ParseField(m)
		if !ok {
			return req, fmt.Errorf("%w: unknown metric %q", services.ErrInvalidRequest, m)
		}
		req.Metric = field
	}
	if n := strings.TrimSpace(q.Get("top_n")); n != "" {
		topN, err := strconv.Atoi(n)
		if err != nil {
			return req, fmt.Errorf("%w: top_n must be an integer", services.ErrInvalidRequest)
		}
		req.TopN = topN
	}
	if b := strings.TrimSpace(q.Get("limit_top_k")); b != "" {
		limit, err := strconv.ParseBool(b)
		if err != nil {
			return req, fmt.Errorf("%w: limit_top_k must be a boolean", services.ErrInvalidRequest)
		}
		req.LimitTopK = limit
	}
	return req, nil
}

func parseLimit(q url.Values) (int, error) {
	s := strings.TrimSpace(q.Get("limit"))
	if s == "" {
		return defaultRecordsLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", services.ErrInvalidRequest)
	}
	if n > maxRecordsLimit {
		n = maxRecordsLimit
	}
	return n, nil
}

func multiValue(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// datasetID returns the {id} path value.
func datasetID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
