package errors

import "fmt"

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Command parsing errors
	ErrCodeBadArgument     ErrorCode = "BAD_ARGUMENT"
	ErrCodeMissingArgument ErrorCode = "MISSING_ARGUMENT"
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"

	// Infrastructure errors
	ErrCodeStorage       ErrorCode = "STORAGE"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// BagError represents a structured error with context
type BagError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *BagError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *BagError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *BagError) WithDetail(key string, value interface{}) *BagError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new BagError
func New(code ErrorCode, message string) *BagError {
	return &BagError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a BagError
func Wrap(err error, code ErrorCode, message string) *BagError {
	return &BagError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific BagError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, searching the wrap chain
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	bagErr, ok := err.(*BagError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return bagErr.Code
}
