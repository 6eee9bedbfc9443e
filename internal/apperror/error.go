// Package apperror defines the error taxonomy shared by the rules, the store
// and the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindPermission
	KindNotFound
	KindRateLimited
)

// Permission levels.
const (
	LevelRequest = "request"
	LevelObject  = "object"
)

// Error codes.
const (
	CodeRequired          = "REQUIRED"
	CodeInvalid           = "INVALID"
	CodeTooLong           = "TOO_LONG"
	CodeInvalidYear       = "INVALID_YEAR"
	CodeInvalidGenre      = "INVALID_GENRE"
	CodeInvalidCategory   = "INVALID_CATEGORY"
	CodeInvalidScore      = "INVALID_SCORE"
	CodeInvalidSlug       = "INVALID_SLUG"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeInvalidUsername   = "INVALID_USERNAME"
	CodeInvalidRole       = "INVALID_ROLE"
	CodeReservedUsername  = "RESERVED_USERNAME"
	CodeDuplicateReview   = "DUPLICATE_REVIEW"
	CodeDuplicateUsername = "DUPLICATE_USERNAME"
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeDuplicateSlug     = "DUPLICATE_SLUG"
	CodeInvalidCode       = "INVALID_CODE"
	CodeNotFound          = "NOT_FOUND"
	CodeNotAuthenticated  = "NOT_AUTHENTICATED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeThrottled         = "THROTTLED"
	CodeInternal          = "INTERNAL"
)

// FieldError is a single field-scoped failure.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Level   string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	switch {
	case len(e.Fields) > 0:
		return fmt.Sprintf("%s: %v", e.Code, e.FieldMessages())
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldMessages groups field messages by field name.
func (e *Error) FieldMessages() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

// HasCode reports whether the error or any of its fields carry code.
func (e *Error) HasCode(code string) bool {
	if e.Code == code {
		return true
	}
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Validation builds a 400 error out of the collected field failures. The
// error code is the first field's code when all fields agree, otherwise
// "INVALID".
func Validation(fields ...FieldError) *Error {
	fields = append([]FieldError(nil), fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	code := CodeInvalid
	if len(fields) > 0 {
		code = fields[0].Code
		for _, f := range fields[1:] {
			if f.Code != code {
				code = CodeInvalid
				break
			}
		}
	}
	return &Error{Kind: KindValidation, Code: code, Message: "validation failed", Fields: fields}
}

// Conflict is a uniqueness violation. It is reported like a validation
// error (400) with the offending field.
func Conflict(field, code, message string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    code,
		Message: message,
		Fields:  []FieldError{{Field: field, Code: code, Message: message}},
	}
}

// Conflicts reports several uniqueness violations at once.
func Conflicts(fields ...FieldError) *Error {
	err := Validation(fields...)
	err.Kind = KindConflict
	err.Message = "already exists"
	return err
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeNotAuthenticated, Message: message}
}

func Forbidden(level, message string) *Error {
	return &Error{Kind: KindPermission, Code: CodePermissionDenied, Message: message, Level: level}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Code: CodeThrottled, Message: "request was throttled"}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// As extracts an *Error from err. Unknown errors become internal errors.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.HasCode(code)
}
