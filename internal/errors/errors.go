package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"digisale-dash/internal/loader"
	"digisale-dash/internal/merge"
	"digisale-dash/internal/services"
)

type ErrorCode string

const (
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeBadRequest ErrorCode = "BAD_REQUEST"
	CodeRateLimit  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
)

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Fields     any       `json:"fields,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Cause:      err,
		Timestamp:  time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

// WithDetails sets a human-readable detail line and returns e.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// FromPipeline maps a pipeline or session failure onto an AppError. Input
// problems become validation errors carrying the offending columns, rows or
// keys in Fields; anything unrecognised is internal.
func FromPipeline(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var (
		unsupported *loader.UnsupportedFormatError
		schemaErr   *loader.SchemaValidationError
		parseErr    *loader.ParseError
		dupErr      *loader.DuplicateKeyError
		joinErr     *merge.JoinAmbiguityError
		tooLarge    *http.MaxBytesError
	)

	switch {
	case stderrors.Is(err, services.ErrNoSnapshot):
		appErr = Wrap(err, CodeNotFound, "No data loaded yet")
	case stderrors.As(err, &tooLarge):
		appErr = Wrap(err, CodeTooLarge, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
	case stderrors.As(err, &unsupported):
		appErr = Wrap(err, CodeValidation, "Unsupported file format")
		appErr.Fields = map[string]any{"source": unsupported.Source, "format": unsupported.Hint}
	case stderrors.As(err, &schemaErr):
		appErr = Wrap(err, CodeValidation, "Missing expected columns")
		appErr.Fields = map[string]any{
			"source":  schemaErr.Source,
			"missing": schemaErr.Missing,
			"found":   schemaErr.Found,
		}
	case stderrors.As(err, &parseErr):
		appErr = Wrap(err, CodeValidation, "Malformed input")
		appErr.Fields = map[string]any{
			"source": parseErr.Source,
			"row":    parseErr.Row,
			"column": parseErr.Column,
		}
	case stderrors.As(err, &dupErr):
		appErr = Wrap(err, CodeValidation, "Duplicate keys")
		appErr.Fields = map[string]any{"source": dupErr.Source, "column": dupErr.Column, "keys": dupErr.Keys}
	case stderrors.As(err, &joinErr):
		appErr = Wrap(err, CodeValidation, "Ambiguous join keys")
		appErr.Fields = map[string]any{"dataset": joinErr.Kind, "column": joinErr.Column, "keys": joinErr.Keys}
	default:
		appErr = InternalWrap(err, "Pipeline failed")
	}

	appErr.Stage = services.Stage(err, "")
	if appErr.StatusCode < 500 {
		appErr.Details = err.Error()
	}
	return appErr
}

func getStatusCode(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Internal("An unexpected error occurred")
		appErr.Cause = err
	}

	appErr.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := ErrorResponse{
		Error:   appErr,
		Success: false,
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logLevel := slog.LevelError
	if appErr.StatusCode < 500 {
		logLevel = slog.LevelWarn
	}

	logger.Log(context.TODO(), logLevel, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"stage", appErr.Stage,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := SuccessResponse{
		Data:    data,
		Success: true,
	}

	json.NewEncoder(w).Encode(response)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
