package common

import "fmt"

// RetrievalError reports that an image could not be fetched or decoded.
// Message is the user-facing text, cause included.
type RetrievalError struct {
	Message string
	Err     error
}

func (e *RetrievalError) Error() string {
	return e.Message
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Configuration Error: %s", e.Message)
}

type ExportError struct {
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Export Error: %s", e.Message)
	}
	return fmt.Sprintf("Export Error: %s: %v", e.Message, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewRetrievalError builds a RetrievalError. When err is non-nil its text is
// appended to message after a colon.
func NewRetrievalError(message string, err error) error {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &RetrievalError{Message: message, Err: err}
}

func NewConfigError(message string) error {
	return &ConfigError{Message: message}
}

func NewExportError(message string, err error) error {
	return &ExportError{Message: message, Err: err}
}
