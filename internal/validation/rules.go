// Package validation holds the field and object rules applied to payloads
// before they reach the store.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
)

// ReservedUsername is the alias of the self-profile route.
const ReservedUsername = "me"

const (
	MinScore = 0
	MaxScore = 10
)

func fail(field, code, format string, args ...any) *apperror.FieldError {
	return &apperror.FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Year rejects years after the calendar year of now.
func Year(year int, now time.Time) *apperror.FieldError {
	if year > now.Year() {
		return fail("year", apperror.CodeInvalidYear, "year cannot be greater than %d", now.Year())
	}
	return nil
}

// Genres rejects any requested slug that is not in known.
func Genres(requested []string, known map[string]bool) *apperror.FieldError {
	var unknown []string
	for _, slug := range requested {
		if !known[slug] {
			unknown = append(unknown, slug)
		}
	}
	if len(unknown) > 0 {
		return fail("genre", apperror.CodeInvalidGenre, "unknown genre: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func Category(slug string, known bool) *apperror.FieldError {
	if !known {
		return fail("category", apperror.CodeInvalidCategory, "unknown category: %s", slug)
	}
	return nil
}

// ReviewUnique only applies when a review is being created; updates of an
// existing review never collide with themselves.
func ReviewUnique(exists, creating bool) *apperror.FieldError {
	if creating && exists {
		return fail("non_field_errors", apperror.CodeDuplicateReview, "you have already reviewed this title")
	}
	return nil
}

// Username rejects the alias of the self-profile route. Length and
// character set come from the payload tags.
func Username(name string) *apperror.FieldError {
	if name == ReservedUsername {
		return fail("username", apperror.CodeReservedUsername, "username %q is reserved", ReservedUsername)
	}
	return nil
}

func Required(field string, present bool) *apperror.FieldError {
	if !present {
		return fail(field, apperror.CodeRequired, "this field is required")
	}
	return nil
}

// NotBlank is Required for string values that must carry text.
func NotBlank(field string, value *string) *apperror.FieldError {
	if value == nil {
		return Required(field, false)
	}
	if strings.TrimSpace(*value) == "" {
		return fail(field, apperror.CodeRequired, "this field may not be blank")
	}
	return nil
}

// Collector accumulates failures so a payload reports every problem at once.
type Collector struct {
	fields []apperror.FieldError
}

func (c *Collector) Check(f *apperror.FieldError) bool {
	if f == nil {
		return true
	}
	c.fields = append(c.fields, *f)
	return false
}

// Failed reports whether field already has a failure.
func (c *Collector) Failed(field string) bool {
	for _, f := range c.fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err is nil when every check passed. A payload whose only failures are
// uniqueness violations is reported as a conflict.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	for _, f := range c.fields {
		if !isDuplicate(f.Code) {
			return apperror.Validation(c.fields...)
		}
	}
	return apperror.Conflicts(c.fields...)
}

func isDuplicate(code string) bool {
	switch code {
	case apperror.CodeDuplicateUsername, apperror.CodeDuplicateEmail,
		apperror.CodeDuplicateSlug, apperror.CodeDuplicateReview:
		return true
	}
	return false
}
