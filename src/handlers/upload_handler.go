// backend/src/handlers/upload_handler.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/parsers"
	"github.com/username/customsdash/backend/src/security/validation"
	"github.com/username/customsdash/backend/src/services"
	"github.com/username/customsdash/backend/src/utils"
)

type UploadHandler struct {
	datasetService     services.DatasetService
	maxUploadSizeBytes int64
}

func NewUploadHandler(service services.DatasetService, maxUploadSizeBytes int64) *UploadHandler {
	return &UploadHandler{
		datasetService:     service,
		maxUploadSizeBytes: maxUploadSizeBytes,
	}
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	maxMB := h.maxUploadSizeBytes / (1024 * 1024)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSizeBytes+1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadSizeBytes); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", maxMB), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadSizeBytes {
		log.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", h.maxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB (header check)", maxMB), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		log.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		log.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("Failed to read uploaded file", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "Failed to read uploaded file.", http.StatusBadRequest)
		return
	}

	name := validation.StripUnprintable(filepath.Base(fileHeader.Filename))
	log.Info("Processing upload request", "filename", name, "clientType", clientContentType, "detectedType", detectedContentType, "bytes", len(data))

	summary, err := h.datasetService.Upload(r.Context(), name, data)
	if err != nil {
		var loadErr *parsers.LoadError
		if errors.As(err, &loadErr) {
			log.Warn("Upload could not be decoded", "filename", name, "tried", loadErr.Tried, "error", loadErr.Err)
			utils.SendJSONError(w, fmt.Sprintf("Could not read the file with any supported encoding (tried %v): %v", loadErr.Tried, loadErr.Err), http.StatusBadRequest)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	utils.SendJSON(w, summary, http.StatusCreated)
}
