package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string, details any) {
	writeJSON(ctx, w, statusCode, ErrorResponse{OK: false, Error: message, Details: details})
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ctx := r.Context()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "validation failed", "field", validationErr.Field, "error", err)
		writeError(ctx, w, http.StatusBadRequest, validationErr.Message, map[string]string{"field": validationErr.Field})
		return
	}

	logger.ErrorContext(ctx, "service error", "error", err)

	if errors.Is(err, service.ErrInvalidInput) {
		writeError(ctx, w, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		writeError(ctx, w, http.StatusBadGateway, "External service error", err.Error())
		return
	}

	writeError(ctx, w, http.StatusInternalServerError, defaultMsg, err.Error())
}

// handleUploadError reports extraction failures with upload-specific messages.
func handleUploadError(ctx context.Context, w http.ResponseWriter, svc service.KnowledgeService, err error, file extract.File, maxSize int64) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %s", file.MIMEType),
			map[string]any{"supportedTypes": svc.SupportedFileTypes()})
	case errors.Is(err, extract.ErrFileTooLarge):
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("File too large. Max size: %dMB", maxSize/(1024*1024)), nil)
	default:
		handleServiceError(ctx, w, err, "Failed to upload document")
	}
}
