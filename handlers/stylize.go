package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"picmagic/dto"
	"picmagic/middleware"
	"picmagic/models"
)

// TaskService is what the handlers need from the lifecycle controller.
type TaskService interface {
	Submit(ctx context.Context, payload models.TaskPayload, traceID string) (string, error)
	Status(ctx context.Context, id string) (*models.Task, error)
}

type StylizeHandler struct {
	service  TaskService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewStylizeHandler(service TaskService, logger *zap.Logger) *StylizeHandler {
	return &StylizeHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// Submit accepts a stylization job and returns its task id immediately.
// Validation failures reject the request before any task is created.
func (h *StylizeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.StylizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondError(w, h.logger, validationMessage(err), err, traceID, http.StatusBadRequest)
		return
	}

	taskID, err := h.service.Submit(r.Context(), models.TaskPayload{
		ImageURL: req.ImageURL,
		Style:    req.Style,
		APIKey:   req.APIKey,
	}, traceID)
	if err != nil {
		respondError(w, h.logger, "Failed to submit task", err, traceID, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusAccepted, dto.StylizeResponse{TaskID: taskID})
}

// Status returns the current state for a task id. Unknown ids read as
// pending, never as an error.
func (h *StylizeHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		respondError(w, h.logger, "taskId query parameter is required", nil, traceID, http.StatusBadRequest)
		return
	}

	task, err := h.service.Status(r.Context(), taskID)
	if err != nil {
		respondError(w, h.logger, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, dto.StatusResponse{
		Status: string(task.Status),
		Result: task.Result,
		Error:  task.Error,
	})
}

var fieldNames = map[string]string{
	"ImageURL": "image_url",
	"Style":    "style",
	"APIKey":   "api_key",
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		if name, ok := fieldNames[field]; ok {
			field = name
		}
		if verrs[0].Tag() == "url" {
			return field + " must be a valid URL"
		}
		return field + " is required"
	}
	return "invalid request"
}
