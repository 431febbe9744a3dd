// Package response writes the wire format shared by every endpoint. Success
// payloads are flat JSON objects; errors carry a status tag, the HTTP code,
// and a user-facing message.
package response

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Status: "error", Code: status, Message: message})
}
