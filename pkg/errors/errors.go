package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error by the subsystem it came from.
type Kind string

const (
	// KindStore marks failures reading or writing the local database.
	KindStore Kind = "store"
	// KindFetch marks failures retrieving or parsing the portal response.
	KindFetch Kind = "fetch"
)

// AppError provides a structured error carrying the failure kind alongside
// a stable code and the underlying cause.
type AppError struct {
	Kind     Kind
	Code     string
	Message  string
	Internal error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Is matches AppErrors by code, so copies made by WithInternal still
// compare equal to their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrRecordNotFound = &AppError{
		Kind:    KindStore,
		Code:    "store.record_not_found",
		Message: "No land record stored for the requested key",
	}

	ErrStoreUnavailable = &AppError{
		Kind:    KindStore,
		Code:    "store.unavailable",
		Message: "Land record database is unavailable",
	}

	ErrPortalUnreachable = &AppError{
		Kind:    KindFetch,
		Code:    "fetch.portal_unreachable",
		Message: "Could not reach the jamabandi portal",
	}

	ErrPortalChanged = &AppError{
		Kind:    KindFetch,
		Code:    "fetch.unexpected_document",
		Message: "Portal response did not match the expected page structure",
	}
)

// StoreError wraps a database failure while keeping the original error for logging.
func StoreError(message string, err error) *AppError {
	return &AppError{
		Kind:     KindStore,
		Code:     "store.failure",
		Message:  message,
		Internal: err,
	}
}

// FetchError wraps a portal failure while keeping the original error for logging.
func FetchError(message string, err error) *AppError {
	return &AppError{
		Kind:     KindFetch,
		Code:     "fetch.failure",
		Message:  message,
		Internal: err,
	}
}

// IsStore reports whether err is (or wraps) a store-kind AppError.
func IsStore(err error) bool {
	return hasKind(err, KindStore)
}

// IsFetch reports whether err is (or wraps) a fetch-kind AppError.
func IsFetch(err error) bool {
	return hasKind(err, KindFetch)
}

// IsNotFound reports whether err indicates a missing record rather than a
// storage failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

func hasKind(err error, kind Kind) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}
