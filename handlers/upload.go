package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"picmagic/dto"
	"picmagic/middleware"
	"picmagic/objectstore"
	"picmagic/validation"
)

const maxUploadSize = 20 << 20

// UploadHandler stores a source image and hands back a dereferenceable URL
// the stylize endpoint accepts as image_url.
type UploadHandler struct {
	uploader objectstore.Uploader
	logger   *zap.Logger
}

func NewUploadHandler(uploader objectstore.Uploader, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, logger: logger}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, h.logger, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, h.logger, "Missing image file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		respondError(w, h.logger, "Image too large", validation.ErrFileTooLarge, traceID, http.StatusBadRequest)
		return
	}

	fileType, err := validation.DetectFileType(file)
	if err != nil {
		respondError(w, h.logger, "Unsupported image format", err, traceID, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, h.logger, "Failed to read image", err, traceID, http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("%s-%s", uuid.New().String(), filepath.Base(header.Filename))
	url, err := h.uploader.Upload(r.Context(), name, data, validation.ContentType(fileType))
	if err != nil {
		respondError(w, h.logger, "Failed to store image", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Image uploaded",
		zap.String("trace_id", traceID),
		zap.String("object", name),
		zap.Int("size", len(data)),
	)

	respondJSON(w, http.StatusCreated, dto.UploadResponse{ImageURL: url})
}
