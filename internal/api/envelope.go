package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform response shape: success responses carry
// success:true and whatever payload fields; failures carry
// success:false, a human message, and an optional machine tag.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, tag string) {
	writeJSON(w, status, envelope{Success: false, Message: message, Error: tag})
}

func writeOK(w http.ResponseWriter, status int, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	writeJSON(w, status, body)
}
