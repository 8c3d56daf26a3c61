package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/esps-console/pkg/api"
)

// responder пишет JSON ответы; встраивается в handlers
type responder struct {
	logger *slog.Logger
}

// sendJSON отправляет JSON ответ
func (h responder) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h responder) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}

// SendError пишет ответ об ошибке в формате API; нужен middleware
func SendError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	responder{logger: logger}.sendError(w, message, statusCode)
}
