package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the envelope written by the handlers.
type errorBody struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequireAuth bool   `json:"requireAuth,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeBody(w, status, errorBody{Message: msg})
}

// writeAuthRequired writes the generic 401 body. It never says why the
// session was rejected.
func writeAuthRequired(w http.ResponseWriter) {
	writeBody(w, http.StatusUnauthorized, errorBody{Message: "Not authenticated", RequireAuth: true})
}

func writeBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
