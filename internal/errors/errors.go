package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeFormat     ErrorType = "format"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeExternal   ErrorType = "external_api"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypePermission ErrorType = "permission"
)

// MaxUserDetail bounds the diagnostic text shown to chat users.
const MaxUserDetail = 200

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", file, line)

	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  source,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", file, line)

	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   source,
		Context:  make(map[string]interface{}),
	}
}

// Handler provides error handling strategies
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle processes an error according to its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.handleGenericError(ctx, err)
	}
}

// handleAppError handles AppError instances
func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeConflict:
		h.logger.WarnContext(ctx, "Recoverable error", err.LogFields()...)
	case ErrorTypePermission:
		h.logger.WarnContext(ctx, "Permission error", err.LogFields()...)
	case ErrorTypeDatabase, ErrorTypeExternal, ErrorTypeInternal, ErrorTypeFormat:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

// handleGenericError handles generic errors
func (h *Handler) handleGenericError(ctx context.Context, err error) {
	h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
}

// Predefined errors
var (
	ErrInvalidInput         = New(ErrorTypeValidation, "INVALID_INPUT", "Invalid input provided")
	ErrNotFound             = New(ErrorTypeNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyEntitled      = New(ErrorTypeConflict, "ALREADY_ENTITLED", "Trial or subscription is already active")
	ErrGenerationInProgress = New(ErrorTypeConflict, "GENERATION_IN_PROGRESS", "Plan generation is already running")
	ErrGenerationSuperseded = New(ErrorTypeConflict, "GENERATION_SUPERSEDED", "Plan generation was cancelled")
	ErrGenerationFormat     = New(ErrorTypeFormat, "GENERATION_FORMAT", "Generated content has an unexpected format")
	ErrGenerationService    = New(ErrorTypeExternal, "GENERATION_SERVICE", "Text generation service failed")
	ErrFeatureLocked        = New(ErrorTypePermission, "FEATURE_LOCKED", "Feature is not available on the current plan")
)

// Convenience functions for common errors
func NewValidationError(code, message string) *AppError {
	err := New(ErrorTypeValidation, code, message)
	err.Source = callerSource()
	return err
}

func NewNotFoundError(what string, id interface{}) *AppError {
	err := New(ErrorTypeNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", what)).
		WithContext("resource", what).
		WithContext("id", id)
	err.Source = callerSource()
	return err
}

func NewDatabaseError(err error) *AppError {
	return Wrap(err, ErrorTypeDatabase, "DB_ERROR", "Database operation failed")
}

// NewGenerationFormatError marks model output that failed to decode or validate.
func NewGenerationFormatError(err error, operation string) *AppError {
	return Wrap(err, ErrorTypeFormat, "GENERATION_FORMAT", fmt.Sprintf("%s: generated content has an unexpected format", operation)).
		WithContext("operation", operation)
}

// NewGenerationServiceError marks transport, timeout and provider failures.
func NewGenerationServiceError(err error, operation string) *AppError {
	return Wrap(err, ErrorTypeExternal, "GENERATION_SERVICE", fmt.Sprintf("%s: text generation service failed", operation)).
		WithContext("operation", operation)
}

func NewFeatureLockedError(feature string) *AppError {
	return New(ErrorTypePermission, "FEATURE_LOCKED", fmt.Sprintf("%s is not available on the current plan", feature)).
		WithContext("feature", feature)
}

func NewInternalError(err error) *AppError {
	return Wrap(err, ErrorTypeInternal, "INTERNAL", "Internal server error")
}

// UserDetail renders err for a chat message, cut to MaxUserDetail runes.
func UserDetail(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	text := err.Error()
	if errors.As(err, &appErr) {
		text = appErr.Message
		if appErr.Internal != nil {
			text += ": " + appErr.Internal.Error()
		}
	}
	return Truncate(text, MaxUserDetail)
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errorType
}

func callerSource() string {
	_, file, line, _ := runtime.Caller(2)
	return fmt.Sprintf("%s:%d", file, line)
}
