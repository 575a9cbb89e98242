package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/service"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/template"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/validator"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// retryAfterSeconds is sent with 503 while the spreadsheet capability loads
const retryAfterSeconds = 5

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps an error to its status code and machine-readable code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, validator.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, validator.ErrCapabilityNotReady), errors.Is(err, parser.ErrCapabilityNotReady):
		return http.StatusServiceUnavailable, "capability_not_ready"
	case errors.Is(err, validator.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, parser.ErrCorruptWorkbook):
		return http.StatusUnprocessableEntity, "corrupt_workbook"
	case errors.Is(err, parser.ErrMalformedText):
		return http.StatusUnprocessableEntity, "malformed_text"
	case errors.Is(err, service.ErrEmptyInput):
		return http.StatusBadRequest, "empty_input"
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, template.ErrUnknownTemplate), errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func userMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "An unexpected error occurred"
	}
	var decodeErr *parser.DecodeError
	if errors.As(err, &decodeErr) {
		switch decodeErr.Reason {
		case parser.ReasonCorruptWorkbook:
			return "The spreadsheet could not be read. Please check the file and try again."
		case parser.ReasonMalformedText:
			return "The CSV file could not be read: " + decodeErr.Detail
		case parser.ReasonCapabilityNotReady:
			return "Spreadsheet support is still loading. Please try again shortly."
		}
	}
	var rejection *validator.RejectionError
	if errors.As(err, &rejection) {
		return rejection.Error()
	}
	return err.Error()
}

func (h *ImportHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	logger := h.loggerFor(r)
	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status", status),
		slog.String("code", code),
		slog.Any("error", err),
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: userMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}
