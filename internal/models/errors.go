package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeInitialized    = "ALREADY_INITIALIZED"
	ErrCodeNotInitialized = "NOT_INITIALIZED"
	ErrCodeExists         = "IDENTIFIER_EXISTS"
	ErrCodeNotFound       = "RECORD_NOT_FOUND"
	ErrCodeAuthentication = "AUTHENTICATION_FAILURE"
	ErrCodePolicy         = "INVALID_POLICY"
	ErrCodeConfig         = "INVALID_CONFIG"
	ErrCodeEncoding       = "INVALID_ENCODING"
	ErrCodeIdentifier     = "INVALID_IDENTIFIER"
	ErrCodeAccess         = "ACCESS_DENIED"
	ErrCodeStorage        = "STORAGE_ERROR"
)

// Sentinel errors
var (
	ErrAlreadyInitialized   = errors.New("vault already initialized")
	ErrNotInitialized       = errors.New("vault not initialized")
	ErrIdentifierExists     = errors.New("identifier already exists")
	ErrRecordNotFound       = errors.New("record not found")
	ErrAuthenticationFailed = errors.New("authentication failure")
	ErrInvalidPolicy        = errors.New("invalid policy")
	ErrInvalidConfig        = errors.New("config is invalid")
	ErrInvalidEncoding      = errors.New("stored value is not valid UTF-8")
	ErrInvalidIdentifier    = errors.New("invalid identifier")
	ErrAccessDenied         = errors.New("access denied")
)

// RecordError describes a failure on a single credential record.
type RecordError struct {
	Op         string
	Identifier string
	Err        error
}

func (e *RecordError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Identifier, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Code maps an error to its error code. Unknown errors map to ErrCodeStorage.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyInitialized):
		return ErrCodeInitialized
	case errors.Is(err, ErrNotInitialized):
		return ErrCodeNotInitialized
	case errors.Is(err, ErrIdentifierExists):
		return ErrCodeExists
	case errors.Is(err, ErrRecordNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrAuthenticationFailed):
		return ErrCodeAuthentication
	case errors.Is(err, ErrInvalidPolicy):
		return ErrCodePolicy
	case errors.Is(err, ErrInvalidConfig):
		return ErrCodeConfig
	case errors.Is(err, ErrInvalidEncoding):
		return ErrCodeEncoding
	case errors.Is(err, ErrInvalidIdentifier):
		return ErrCodeIdentifier
	case errors.Is(err, ErrAccessDenied):
		return ErrCodeAccess
	default:
		return ErrCodeStorage
	}
}
