package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"picmagic/dto"
	"picmagic/middleware"
)

// Demo stub: a fixed key set instead of a real account system. The core
// imposes no authentication of its own.
var demoKeys = map[string]bool{
	"USER_KEY_001": true,
	"USER_KEY_002": true,
	"USER_KEY_003": true,
}

type ValidateKeyHandler struct {
	logger *zap.Logger
}

func NewValidateKeyHandler(logger *zap.Logger) *ValidateKeyHandler {
	return &ValidateKeyHandler{logger: logger}
}

func (h *ValidateKeyHandler) Validate(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.ValidateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	if req.Key == "" {
		respondJSON(w, http.StatusBadRequest, dto.ValidateKeyResponse{
			IsValid: false,
			Message: "no key provided",
		})
		return
	}

	if !demoKeys[req.Key] {
		respondJSON(w, http.StatusForbidden, dto.ValidateKeyResponse{
			IsValid: false,
			Message: "invalid key",
		})
		return
	}

	respondJSON(w, http.StatusOK, dto.ValidateKeyResponse{
		IsValid: true,
		Message: "key accepted",
	})
}
