// backend/src/utils/http_utils.go
package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/customsdash/backend/src/logger"
	"github.com/zeebo/xxh3"
)

// ContentHash returns the hex xxh3 digest used for dataset ids and ETags.
func ContentHash(parts ...[]byte) string {
	h := xxh3.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write(p)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// GenerateETag hashes the JSON representation of data.
func GenerateETag(data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data for ETag generation: %w", err)
	}
	return ContentHash(jsonData), nil
}

// SendJSONError sends a JSON formatted error response.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// SendJSON writes v as a JSON response with the given status.
func SendJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}
