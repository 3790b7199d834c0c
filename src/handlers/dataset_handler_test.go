package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/patrickmn/go-cache"
	"github.com/username/customsdash/backend/src/config"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/parsers"
	"github.com/username/customsdash/backend/src/processors"
	"github.com/username/customsdash/backend/src/services"
	"github.com/username/customsdash/backend/src/utils"
)

const testCSV = "Viti,Muaji,Lloji,Kategoria,Vlera (€)\n" +
	"2024,1,Import,Textiles,\"1.500,00\"\n" +
	"2024,1,Import,Food,500\n" +
	"2023,2,Eksport,Textiles,200\n"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := services.NewDatasetService(
		processors.NewSchemaNormalizer(
			config.DefaultAliasTable(),
			config.DefaultHSColumnNames,
			utils.NewNumberCoercer(utils.DefaultCurrencyTokens),
			utils.NewMonthLocalizer("sq"),
		),
		processors.NewChartProcessor("Të tjera", 10),
		nil,
		cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval),
		services.DatasetServiceOptions{
			ParseOptions: parsers.Options{Encodings: config.DefaultEncodings, Delimiter: ','},
		},
	)
	upload := NewUploadHandler(svc, 1<<20)
	dataset := NewDatasetHandler(svc, false)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/datasets", upload.HandleUpload)
	mux.HandleFunc("GET /api/datasets/{id}", dataset.HandleGetSummary)
	mux.HandleFunc("GET /api/datasets/{id}/records", dataset.HandleGetRecords)
	mux.HandleFunc("GET /api/datasets/{id}/dashboard", dataset.HandleGetDashboard)
	mux.HandleFunc("GET /api/datasets/{id}/export.csv", dataset.HandleExportCSV)
	mux.HandleFunc("GET /api/datasets/{id}/export.xlsx", dataset.HandleExportXLSX)
	return RequestLogger(mux)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func uploadDataset(t *testing.T, router http.Handler) models.DatasetSummary {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "te_dhena.csv", []byte(testCSV)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var summary models.DatasetSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return summary
}

func get(router http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndSummary(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)
	if summary.ID == "" || summary.RowCount != 3 || summary.Name != "te_dhena.csv" {
		t.Errorf("summary = %+v", summary)
	}

	rec := get(router, "/api/datasets/"+summary.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
}

func TestUploadUndecodableFile(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "bosh.csv", []byte("  \n")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "windows-1252") {
		t.Errorf("error should list the tried encodings, got %s", rec.Body.String())
	}
}

func TestUploadMissingFileField(t *testing.T) {
	router := newTestRouter(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "x")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDashboardETag(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)
	target := "/api/datasets/" + summary.ID + "/dashboard?trade_type=Import"

	first := get(router, target, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", first.Code, first.Body.String())
	}
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}
	var result models.DashboardResult
	if err := json.NewDecoder(first.Body).Decode(&result); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if result.RowCount != 2 || len(result.Charts) == 0 {
		t.Errorf("result = %+v", result)
	}

	second := get(router, target, http.Header{"If-None-Match": {etag}})
	if second.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", second.Code)
	}
}

func TestDashboardEmptyFilterIsOK(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)

	rec := get(router, "/api/datasets/"+summary.ID+"/dashboard?year=1999", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result models.DashboardResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Warning == "" || result.RowCount != 0 {
		t.Errorf("result = %+v, want warning and no rows", result)
	}
}

func TestDatasetErrors(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)
	base := "/api/datasets/" + summary.ID

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"unknown dataset", "/api/datasets/deadbeef", http.StatusNotFound},
		{"bad year", base + "/dashboard?year=abc", http.StatusBadRequest},
		{"bad metric", base + "/dashboard?metric=category", http.StatusBadRequest},
		{"bad top_n", base + "/dashboard?top_n=ten", http.StatusBadRequest},
		{"bad limit_top_k", base + "/dashboard?limit_top_k=maybe", http.StatusBadRequest},
		{"unknown hs column", base + "/dashboard?hs_column=Nope", http.StatusBadRequest},
		{"bad records limit", base + "/records?limit=0", http.StatusBadRequest},
		{"xlsx without chart", base + "/export.xlsx", http.StatusBadRequest},
		{"xlsx skipped chart", base + "/export.xlsx?chart=hs_ranking", http.StatusNotFound},
		{"xlsx empty filter", base + "/export.xlsx?chart=summary&year=1999", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(router, tt.target, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("expected a JSON error body, got %v (%v)", body, err)
			}
		})
	}
}

func TestRecordsRepeatedCategory(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)

	rec := get(router, "/api/datasets/"+summary.ID+"/records?category=Food&category=Textiles&trade_type=Import", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page models.RecordsPage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want 2", page.Total)
	}
}

func TestExportCSVHandler(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)

	rec := get(router, "/api/datasets/"+summary.ID+"/export.csv?year=2024", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "te_dhena_filtruara.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("export lines = %q, want header + 2", lines)
	}
}

func TestExportXLSXHandler(t *testing.T) {
	router := newTestRouter(t)
	summary := uploadDataset(t, router)

	rec := get(router, "/api/datasets/"+summary.ID+"/export.xlsx?chart=category_share", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip container")
	}
}

func TestParseFilterRequest(t *testing.T) {
	q := map[string][]string{
		"year":       {" 2024 "},
		"trade_type": {" Import "},
		"category":   {"Food", " ", "Pije, alkoolike"},
		"hs_code":    {"5208"},
	}
	req, err := parseFilterRequest(q)
	if err != nil {
		t.Fatalf("parseFilterRequest: %v", err)
	}
	if req.Year == nil || *req.Year != 2024 || req.TradeType != "Import" {
		t.Errorf("req = %+v", req)
	}
	if len(req.Categories) != 2 || req.Categories[1] != "Pije, alkoolike" {
		t.Errorf("Categories = %q", req.Categories)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", defaultRecordsLimit, false},
		{"25", 25, false},
		{"999999", maxRecordsLimit, false},
		{"-1", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(map[string][]string{"limit": {tt.in}})
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseLimit(%q) = %d, %v", tt.in, got, err)
		}
	}
}
