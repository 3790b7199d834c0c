// backend/src/handlers/dataset_handler.go
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/services"
	"github.com/username/customsdash/backend/src/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DatasetHandler struct {
	datasetService   services.DatasetService
	limitTopKDefault bool
}

func NewDatasetHandler(service services.DatasetService, limitTopKDefault bool) *DatasetHandler {
	return &DatasetHandler{
		datasetService:   service,
		limitTopKDefault: limitTopKDefault,
	}
}

func (h *DatasetHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.datasetService.Summary(r.Context(), datasetID(r), strings.TrimSpace(r.URL.Query().Get("hs_column")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

func (h *DatasetHandler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilterRequest(q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.datasetService.Records(r.Context(), datasetID(r), filter, strings.TrimSpace(q.Get("hs_column")), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, page, http.StatusOK)
}

func (h *DatasetHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, err := parseDashboardRequest(r.URL.Query(), h.limitTopKDefault)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.datasetService.Dashboard(r.Context(), datasetID(r), req)
	if err != nil && !errors.Is(err, services.ErrEmptyFilterResult) {
		writeServiceError(w, r, err)
		return
	}

	currentETag, etagErr := utils.GenerateETag(result)
	if etagErr != nil {
		log.Error("Failed to generate ETag for dashboard", "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				log.Debug("ETag match for dashboard", "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.SendJSON(w, result, http.StatusOK)
}

func (h *DatasetHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilterRequest(q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Buffer so a failure midway still yields a JSON error, not a partial file.
	var buf bytes.Buffer
	if err := h.datasetService.ExportCSV(r.Context(), datasetID(r), filter, strings.TrimSpace(q.Get("hs_column")), &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="te_dhena_filtruara.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.FromContext(r.Context()).Error("Error writing CSV export", "error", err)
	}
}

func (h *DatasetHandler) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chartID := strings.TrimSpace(q.Get("chart"))
	if chartID == "" {
		utils.SendJSONError(w, "query parameter 'chart' is required", http.StatusBadRequest)
		return
	}
	req, err := parseDashboardRequest(q, h.limitTopKDefault)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.datasetService.ExportXLSX(r.Context(), datasetID(r), req, chartID, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, chartID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.FromContext(r.Context()).Error("Error writing XLSX export", "error", err)
	}
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, services.ErrDatasetNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrChartNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrEmptyFilterResult):
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case services.IsClientError(err):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("Internal error handling dataset request", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}
