package ir

import (
	"errors"
	"fmt"
)

// Error is the single error type raised by the core.
//
// All codes are deterministic given the same inputs; none of them is
// retried internally.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Property names the offending property, when there is one.
	Property string

	// Type names the offending Go type or kind, when there is one.
	Type string
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeInvalidConfiguration indicates an option set on an incompatible kind.
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"

	// ErrCodeInvalidArgument indicates an option or input outside its domain.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeUnsupportedType indicates a property type with no catalog entry.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeNamingCollision indicates a column name clash, including the
	// reserved ordinal column.
	ErrCodeNamingCollision ErrorCode = "NAMING_COLLISION"

	// ErrCodeInternalInvariant indicates a kind reached the catalog without
	// an entry. It is a bug, not a caller error.
	ErrCodeInternalInvariant ErrorCode = "INTERNAL_INVARIANT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Property != "" && e.Type != "":
		return fmt.Sprintf("%s: %s (property=%s, type=%s)", e.Code, e.Message, e.Property, e.Type)
	case e.Property != "":
		return fmt.Sprintf("%s: %s (property=%s)", e.Code, e.Message, e.Property)
	case e.Type != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error by code, so errors.Is works against the
// sentinel values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code && t.Message == ""
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrInvalidConfiguration = &Error{Code: ErrCodeInvalidConfiguration}
	ErrInvalidArgument      = &Error{Code: ErrCodeInvalidArgument}
	ErrUnsupportedType      = &Error{Code: ErrCodeUnsupportedType}
	ErrNamingCollision      = &Error{Code: ErrCodeNamingCollision}
	ErrInternalInvariant    = &Error{Code: ErrCodeInternalInvariant}
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsInvalidConfiguration returns true if err is an INVALID_CONFIGURATION error.
func IsInvalidConfiguration(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInvalidConfiguration
}

// IsInvalidArgument returns true if err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInvalidArgument
}

// IsUnsupportedType returns true if err is an UNSUPPORTED_TYPE error.
func IsUnsupportedType(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnsupportedType
}

// IsNamingCollision returns true if err is a NAMING_COLLISION error.
func IsNamingCollision(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeNamingCollision
}

// IsInternalInvariant returns true if err is an INTERNAL_INVARIANT error.
func IsInternalInvariant(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInternalInvariant
}

// NewInvalidConfiguration creates an INVALID_CONFIGURATION error for a property.
func NewInvalidConfiguration(property PropertyID, kind ScalarKind, message string) *Error {
	return &Error{
		Code:     ErrCodeInvalidConfiguration,
		Message:  message,
		Property: property.String(),
		Type:     kind.String(),
	}
}

// NewInvalidArgument creates an INVALID_ARGUMENT error.
func NewInvalidArgument(property, message string) *Error {
	return &Error{
		Code:     ErrCodeInvalidArgument,
		Message:  message,
		Property: property,
	}
}

// NewUnsupportedType creates an UNSUPPORTED_TYPE error naming the property
// and its Go type.
func NewUnsupportedType(property, typeName string) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedType,
		Message:  "property type has no scalar kind",
		Property: property,
		Type:     typeName,
	}
}

// NewNamingCollision creates a NAMING_COLLISION error for a column.
func NewNamingCollision(property, column string) *Error {
	return &Error{
		Code:     ErrCodeNamingCollision,
		Message:  fmt.Sprintf("column %q is already in use", column),
		Property: property,
	}
}

// NewInternalInvariant creates an INTERNAL_INVARIANT error for a kind with
// no catalog entry.
func NewInternalInvariant(kind ScalarKind) *Error {
	return &Error{
		Code:    ErrCodeInternalInvariant,
		Message: "scalar kind has no catalog entry",
		Type:    kind.String(),
	}
}
