// Package faults holds the error kinds shared by the planner, the engine and
// the caller-facing API.
package faults

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid request or engine setup: unsupported
// format, invalid page size or limit, unknown resource type, illegal nested
// synchronous run. It is always raised before any network activity.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Configf builds a ConfigurationError for the given field.
func Configf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Config wraps cause as a ConfigurationError for the given field.
func Config(field string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Cause: cause}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
