package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCode reports whether err is an AppError carrying the given code
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeUnknownSeason        = "UNKNOWN_SEASON"
	CodeMissingFile          = "MISSING_FILE"
	CodeNonConvergence       = "OPTIMIZATION_NON_CONVERGENCE"
	CodeDegenerateLikelihood = "DEGENERATE_LIKELIHOOD"
	CodeStorageError         = "STORAGE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Common error constructors

// ConfigInvalid flags an unrecognized or physically invalid configuration
// choice. These abort the run that triggered them.
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// ConfigInvalidf is ConfigInvalid with formatting, used to name the
// offending key and value.
func ConfigInvalidf(format string, args ...interface{}) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf(format, args...))
}

// UnknownSeason reports a season lookup failure by name.
func UnknownSeason(name string) *AppError {
	return New(CodeUnknownSeason, fmt.Sprintf("unknown season %q", name))
}

// MissingFile reports a catalogue/background-distribution lookup failure.
func MissingFile(path string) *AppError {
	return New(CodeMissingFile, fmt.Sprintf("file not found: %s", path))
}

// NonConvergence tags an optimizer that exhausted its retry budget. It is
// recorded on the trial, never fatal.
func NonConvergence(message string) *AppError {
	return New(CodeNonConvergence, message)
}

// DegenerateLikelihood tags a zero-information trial (e.g. an empty
// pseudo-dataset). The trial's TS is recorded as 0.
func DegenerateLikelihood(message string) *AppError {
	return New(CodeDegenerateLikelihood, message)
}

func StorageError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageError,
		Message: message,
		Cause:   cause,
	}
}
