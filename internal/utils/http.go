package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// WriteJSON serializes data to JSON and writes it with statusCode and a
// JSON content type. Marshal failures become a 500 response.
//
// Example usage:
//
//	WriteJSON(w, models.InfoCollections{"meta": ts}, http.StatusOK)
func WriteJSON(w http.ResponseWriter, data any, statusCode int) (int, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "error writing data to JSON", http.StatusInternalServerError)
		return 0, fmt.Errorf("error writing data to JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return w.Write(jsonData)
}

// SetSyncTimestamps sets the X-Weave-Timestamp and X-Last-Modified headers a
// Sync 1.5 storage server attaches to every response. Values are float
// seconds. Must be called before the status line is written.
func SetSyncTimestamps(w http.ResponseWriter, now, lastModified string) {
	w.Header().Set("X-Weave-Timestamp", now)
	if lastModified != "" {
		w.Header().Set("X-Last-Modified", lastModified)
	}
}
