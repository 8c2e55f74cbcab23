package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope wraps every API response body.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Message: statusSuccess, Data: data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Status: statusError, Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}
