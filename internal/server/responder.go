package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/comigor/nazborg-go/internal/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.From(ctx).Error("failed to encode response", "error", err)
	}
}

// writeError sends message to the client and logs cause, which may carry
// upstream detail the client must not see.
func writeError(ctx context.Context, w http.ResponseWriter, status int, message string, cause error) {
	if cause != nil {
		log := logger.From(ctx)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "status", status, "error", cause)
		} else {
			log.Info("request rejected", "status", status, "error", cause)
		}
	}
	writeJSON(ctx, w, status, errorResponse{Error: message})
}
