package handlers

import (
	"encoding/json"
	"net/http"
)

// respondJSON sends a success envelope. A nil data omits the field, so
// mutations that return nothing still produce {"ok":true}.
func respondJSON(w http.ResponseWriter, status int, data any) {
	respondJSONWithMeta(w, status, data, nil)
}

// respondJSONWithMeta sends a success envelope with pagination metadata.
func respondJSONWithMeta(w http.ResponseWriter, status int, data, meta any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"ok": true,
	}
	if data != nil {
		response["data"] = data
	}
	if meta != nil {
		response["meta"] = meta
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage bounds error messages before they leave the API.
func sanitizeErrorMessage(message string) string {
	if len(message) > 200 {
		message = message[:200] + "..."
	}
	return message
}

// respondJSONError sends a failure envelope.
func respondJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"ok":      false,
		"message": sanitizeErrorMessage(message),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
