package httpapi

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError sends a generic message for the status code. The precise
// cause stays in the logs; responses never leak which internal check
// failed.
func writeError(w http.ResponseWriter, status int) {
	var msg string
	switch status {
	case http.StatusBadRequest:
		msg = "invalid request"
	case http.StatusUnauthorized:
		msg = "unauthorized"
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded"
	case http.StatusServiceUnavailable:
		msg = "service unavailable"
	default:
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
