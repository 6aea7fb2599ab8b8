package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Standard error sentinels shared across the analyzer
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternalError = errors.New("internal error")
	ErrUnavailable   = errors.New("service unavailable")
	ErrRateLimited   = errors.New("rate limit exceeded")

	// Model-based detector failures. Each one is reported next to the
	// pattern-based results instead of failing the analysis.
	ErrInvalidEntity   = errors.New("invalid entity for model analysis")
	ErrConfiguration   = errors.New("model configuration error")
	ErrResponseParse   = errors.New("failed to decode model response")
	ErrExternalService = errors.New("model service error")
)

// Error codes attached to structured errors
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeUnavailable     = "UNAVAILABLE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInvalidEntity   = "INVALID_ENTITY"
	CodeConfiguration   = "CONFIGURATION_ERROR"
	CodeResponseParse   = "RESPONSE_PARSE_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
)

var sentinelCodes = map[error]string{
	ErrNotFound:        CodeNotFound,
	ErrInvalidInput:    CodeInvalidInput,
	ErrInternalError:   CodeInternalError,
	ErrUnavailable:     CodeUnavailable,
	ErrRateLimited:     CodeRateLimited,
	ErrInvalidEntity:   CodeInvalidEntity,
	ErrConfiguration:   CodeConfiguration,
	ErrResponseParse:   CodeResponseParse,
	ErrExternalService: CodeExternalService,
}

// Error represents a structured error with its creation site and context
type Error struct {
	// original is the underlying error
	original error

	// message is the error message
	message string

	// fields contains contextual information
	fields map[string]interface{}

	file string
	line int

	// Code is an optional error code for categorization
	Code string
}

func firstFields(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 && fields[0] != nil {
		return fields[0]
	}
	return make(map[string]interface{})
}

func build(skip int, original error, message string, code string, fields []map[string]interface{}) *Error {
	_, file, line, _ := runtime.Caller(skip + 1)
	return &Error{
		original: original,
		message:  message,
		fields:   firstFields(fields),
		file:     file,
		line:     line,
		Code:     code,
	}
}

// New creates a new structured error with the given message
func New(message string, fields ...map[string]interface{}) *Error {
	return build(1, errors.New(message), message, "", fields)
}

// Wrap wraps an existing error with additional context.
// The code of a wrapped sentinel or structured error is preserved.
func Wrap(err error, message string, fields ...map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	return build(1, err, message, GetErrorCode(err), fields)
}

func (e *Error) clone(extra int) *Error {
	result := &Error{
		original: e.original,
		message:  e.message,
		fields:   make(map[string]interface{}, len(e.fields)+extra),
		file:     e.file,
		line:     e.line,
		Code:     e.Code,
	}
	for k, v := range e.fields {
		result.fields[k] = v
	}
	return result
}

// WithField returns a copy of the error with one more context field
func (e *Error) WithField(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}
	result := e.clone(1)
	result.fields[key] = value
	return result
}

// WithFields returns a copy of the error with the given context fields added
func (e *Error) WithFields(fields map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	result := e.clone(len(fields))
	for k, v := range fields {
		result.fields[k] = v
	}
	return result
}

// WithCode returns a copy of the error carrying the given code
func (e *Error) WithCode(code string) *Error {
	if e == nil {
		return nil
	}
	result := e.clone(0)
	result.Code = code
	return result
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil || e.original == nil {
		return ""
	}
	if e.message == "" || e.message == e.original.Error() {
		return e.original.Error()
	}
	return fmt.Sprintf("%s: %v", e.message, e.original)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.original
}

// Is reports whether the wrapped error matches target
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	if errors.Is(e.original, target) {
		return true
	}
	return e == target
}

// Message returns the error message without the wrapped cause
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Location returns the file:line where the error was created
func (e *Error) Location() string {
	if e == nil {
		return ""
	}
	parts := strings.Split(e.file, "/")
	return fmt.Sprintf("%s:%d", parts[len(parts)-1], e.line)
}

// GetFields returns the error's context fields
func (e *Error) GetFields() map[string]interface{} {
	if e == nil {
		return nil
	}
	return e.fields
}

// GetCode returns the error's code
func (e *Error) GetCode() string {
	if e == nil {
		return ""
	}
	return e.Code
}

// AsJSON returns the error in JSON-friendly map format
func (e *Error) AsJSON() map[string]interface{} {
	if e == nil {
		return nil
	}

	result := map[string]interface{}{
		"error":    e.Error(),
		"location": e.Location(),
	}
	if e.Code != "" {
		result["code"] = e.Code
	}
	if len(e.fields) > 0 {
		result["context"] = e.fields
	}
	return result
}

func newCoded(sentinel error, message string, fields []map[string]interface{}) *Error {
	return build(2, sentinel, message, sentinelCodes[sentinel], fields)
}

// NewInvalidInput creates an ErrInvalidInput error with additional context
func NewInvalidInput(message string, fields ...map[string]interface{}) *Error {
	return newCoded(ErrInvalidInput, message, fields)
}

// NewInternalError creates an ErrInternalError error with additional context
func NewInternalError(message string, fields ...map[string]interface{}) *Error {
	return newCoded(ErrInternalError, message, fields)
}

// NewRateLimited reports a client that exceeded its request budget
func NewRateLimited(message string, fields ...map[string]interface{}) *Error {
	return newCoded(ErrRateLimited, message, fields)
}

// NewInvalidEntity reports an analysis task selector the model detector does not know
func NewInvalidEntity(entity string, fields ...map[string]interface{}) *Error {
	err := newCoded(ErrInvalidEntity, "Invalid entity for LLM analysis.", fields)
	err.fields["entity"] = entity
	return err
}

// NewConfiguration reports a missing or unusable model credential
func NewConfiguration(message string, fields ...map[string]interface{}) *Error {
	return newCoded(ErrConfiguration, message, fields)
}

// NewResponseParse reports model output that is not valid JSON after fence stripping
func NewResponseParse(cause error, fields ...map[string]interface{}) *Error {
	err := newCoded(ErrResponseParse, "Failed to decode JSON from LLM response.", fields)
	if cause != nil {
		err.fields["cause"] = cause.Error()
	}
	return err
}

// NewExternalService reports any other failure talking to the model service
func NewExternalService(cause error, fields ...map[string]interface{}) *Error {
	msg := "An error occurred with the Gemini API"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return newCoded(ErrExternalService, msg, fields)
}

// IsErrorType checks if an error is of a specific error type
func IsErrorType(err, target error) bool {
	return errors.Is(err, target)
}

// GetErrorCode extracts the error code from a structured error, falling back
// to the code of a known sentinel in the chain
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var serr *Error
	if errors.As(err, &serr) && serr.Code != "" {
		return serr.Code
	}
	for sentinel, code := range sentinelCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// GetErrorFields extracts fields from an error if it's a structured error
func GetErrorFields(err error) map[string]interface{} {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.GetFields()
	}
	return nil
}

// GetErrorMessage returns the human readable message of a structured error,
// or err.Error() for anything else
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var serr *Error
	if errors.As(err, &serr) && serr.message != "" {
		return serr.message
	}
	return err.Error()
}
