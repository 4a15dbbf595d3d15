// Package apperror defines the error kinds surfaced by the workflow engine.
// Every failure returned across a service boundary carries one Kind plus a
// human readable message.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindUnauthenticated   Kind = "Unauthenticated"
	KindForbidden         Kind = "Forbidden"
	KindValidation        Kind = "ValidationError"
	KindFileTooLarge      Kind = "FileTooLarge"
	KindUnsupportedType   Kind = "UnsupportedType"
	KindNotFound          Kind = "NotFound"
	KindDuplicateName     Kind = "DuplicateName"
	KindInvalidTransition Kind = "InvalidTransition"
	KindProfileIncomplete Kind = "ProfileIncomplete"
	KindConflict          Kind = "Conflict"
	KindInUse             Kind = "InUse"
	KindInternal          Kind = "Internal"
)

type Error struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`

	// Set for InvalidTransition only.
	Current   string `json:"current,omitempty"`
	Attempted string `json:"attempted,omitempty"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func InUse(message string) *Error           { return New(KindInUse, message) }

func NotFound(entity string) *Error {
	return Newf(KindNotFound, "%s not found", entity)
}

func DuplicateName(entity, name string) *Error {
	return Newf(KindDuplicateName, "%s %q already exists", entity, name)
}

// Validation builds a ValidationError whose message names every offending field.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Error{
		Kind:    KindValidation,
		Message: "validation failed: " + strings.Join(keys, ", "),
		Fields:  fields,
	}
}

func FileTooLarge(name string, size, limit int64) *Error {
	return Newf(KindFileTooLarge, "file %q is %d bytes, limit is %d bytes", name, size, limit)
}

func UnsupportedType(name string) *Error {
	return Newf(KindUnsupportedType, "file %q has an unsupported type", name)
}

func InvalidTransition(current, attempted string) *Error {
	return &Error{
		Kind:      KindInvalidTransition,
		Message:   fmt.Sprintf("cannot move from %q to %q", current, attempted),
		Current:   current,
		Attempted: attempted,
	}
}

func ProfileIncomplete(missing []string) *Error {
	return Newf(KindProfileIncomplete, "complete your profile first: missing %s", strings.Join(missing, ", "))
}

// Internal wraps an unexpected failure; the cause is kept for logs only.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As unwraps err into an *Error, wrapping unknown errors as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}
