// Package serrors defines the structured error taxonomy shared by services
// and repositories. Every error carries enough structure (kind, entity,
// field, rule) for a caller to render a specific message.
package serrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindNotFound   Kind = "NOT_FOUND"
	KindIO         Kind = "IO"
)

const (
	CodeInvalidField      = "INVALID_FIELD"
	CodeRangeOverlap      = "RANGE_OVERLAP"
	CodePrivilegeRequired = "PRIVILEGE_REQUIRED"
	CodeDuplicateKey      = "DUPLICATE_KEY"
	CodeStateConflict     = "STATE_CONFLICT"
	CodeAlreadyApproved   = "ALREADY_APPROVED"
	CodeAlreadyRejected   = "ALREADY_REJECTED"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeStorage           = "STORAGE_UNAVAILABLE"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrIO         = &Error{Kind: KindIO}
)

type Error struct {
	Kind     Kind
	Code     string
	Entity   string
	EntityID string
	Field    string
	Rule     string
	Value    any
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
		if e.EntityID != "" {
			b.WriteString(" ")
			b.WriteString(e.EntityID)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by kind, and by code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// HTTPStatus maps the kind onto the status the REST layer reports.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry with backoff.
func (e *Error) Retryable() bool {
	return e.Kind == KindIO
}

// WithEntityID returns a copy of e scoped to a concrete record.
func (e *Error) WithEntityID(id string) *Error {
	cp := *e
	cp.EntityID = id
	return &cp
}

func NewValidationError(entity, field, rule string, value any) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidField,
		Entity:  entity,
		Field:   field,
		Rule:    rule,
		Value:   value,
		Message: fmt.Sprintf("%s violates %s (got %v)", field, rule, value),
	}
}

func NewOverlapError(entity, field string, value any, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeRangeOverlap,
		Entity:  entity,
		Field:   field,
		Rule:    "no_overlap",
		Value:   value,
		Message: message,
	}
}

func NewPrivilegeRequiredError(entity, id, op string) *Error {
	return &Error{
		Kind:     KindValidation,
		Code:     CodePrivilegeRequired,
		Entity:   entity,
		EntityID: id,
		Rule:     "privileged_actor",
		Message:  fmt.Sprintf("%s of an approved record requires a privileged actor", op),
	}
}

func NewDuplicateError(entity, field string, value any) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeDuplicateKey,
		Entity:  entity,
		Field:   field,
		Rule:    "unique",
		Value:   value,
		Message: fmt.Sprintf("%s %q already exists", field, fmt.Sprint(value)),
	}
}

func NewStateConflictError(entity, id, op, status string) *Error {
	return &Error{
		Kind:     KindConflict,
		Code:     CodeStateConflict,
		Entity:   entity,
		EntityID: id,
		Field:    "status",
		Rule:     "status_draft",
		Value:    status,
		Message:  fmt.Sprintf("cannot %s a record in status %s", op, status),
	}
}

func NewAlreadyInStatusError(entity, id, code, status string) *Error {
	return &Error{
		Kind:     KindConflict,
		Code:     code,
		Entity:   entity,
		EntityID: id,
		Field:    "status",
		Value:    status,
		Message:  fmt.Sprintf("record is already %s", strings.ToLower(status)),
	}
}

func NewVersionConflictError(entity, id string, expected int64) *Error {
	return &Error{
		Kind:     KindConflict,
		Code:     CodeVersionConflict,
		Entity:   entity,
		EntityID: id,
		Field:    "version",
		Value:    expected,
		Message:  "record was modified concurrently",
	}
}

func NewNotFoundError(entity, id string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Code:     CodeNotFound,
		Entity:   entity,
		EntityID: id,
		Message:  "not found",
	}
}

func NewIOError(entity, op string, cause error) *Error {
	return &Error{
		Kind:    KindIO,
		Code:    CodeStorage,
		Entity:  entity,
		Message: op + " failed",
		Cause:   cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// AsError unwraps err into *Error.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}
