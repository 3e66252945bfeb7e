package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further status transition may occur.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskPayload carries the inputs needed to perform the stylization. It is
// persisted with the task so an out-of-band executor can pick the work up
// without access to the original request.
type TaskPayload struct {
	ImageURL string `json:"image_url"`
	Style    string `json:"style"`
	APIKey   string `json:"api_key"`
}

// StylizeResult is the output of a completed stylization. ImageURLs is
// never empty; PreviewURL always equals its first element.
type StylizeResult struct {
	PreviewURL string   `json:"preview_url"`
	ImageURLs  []string `json:"image_urls"`
	StyleName  string   `json:"style_name"`
}

type Task struct {
	ID        string         `json:"id"`
	TraceID   string         `json:"trace_id,omitempty"`
	Status    TaskStatus     `json:"status"`
	Payload   TaskPayload    `json:"payload"`
	Result    *StylizeResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
