package utils

import (
	"encoding/json"
	"net/http"
)

// JSONResponse writes payload as JSON with the given status.
func JSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorResponse writes {"error": message}.
func ErrorResponse(w http.ResponseWriter, status int, message string) {
	JSONResponse(w, status, map[string]string{"error": message})
}

// WriteError maps err to a status and message. Errors that are not APIErrors become
// a 500 carrying fallback, so internal details never reach the client.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	if apiErr, ok := AsAPIError(err); ok {
		ErrorResponse(w, apiErr.Status, apiErr.Message)
		return
	}
	ErrorResponse(w, http.StatusInternalServerError, fallback)
}
