package dto

import (
	"picmagic/models"
	"picmagic/styles"
)

type StylizeRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
	Style    string `json:"style"     validate:"required"`
	APIKey   string `json:"api_key"   validate:"required"`
}

type StylizeResponse struct {
	TaskID string `json:"task_id"`
}

// StatusResponse is the full persisted state for a known task, or just
// {"status":"pending"} for an id the store has not seen yet.
type StatusResponse struct {
	Status string                `json:"status"`
	Result *models.StylizeResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

type StylesResponse struct {
	Styles []styles.Descriptor `json:"styles"`
}

type UploadResponse struct {
	ImageURL string `json:"image_url"`
}

type ValidateKeyRequest struct {
	Key string `json:"key"`
}

type ValidateKeyResponse struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
