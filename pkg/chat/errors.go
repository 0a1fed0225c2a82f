package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrImportValidation marks an import document that matches neither the
	// full-state nor the single-chat shape.
	ErrImportValidation = errors.New("import validation failed")
	ErrChatNotFound     = errors.New("chat not found")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// ImportError describes why an import document was rejected.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrImportValidation, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrImportValidation, e.Reason)
}

// Unwrap lets errors.Is match ErrImportValidation and the decode cause.
func (e *ImportError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrImportValidation, e.Err}
	}
	return []error{ErrImportValidation}
}

func importErr(reason string, cause error) error {
	return &ImportError{Reason: reason, Err: cause}
}
