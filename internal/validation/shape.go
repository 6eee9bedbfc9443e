package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
)

var (
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

// newShapeValidator checks the `validate` tags of the input DTOs. Fields are
// reported under their JSON names.
func newShapeValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// shapeFailure maps one tag failure to the error codes the API reports.
func shapeFailure(fe validator.FieldError) apperror.FieldError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperror.FieldError{Field: field, Code: apperror.CodeRequired, Message: "this field is required"}
	case "max":
		return apperror.FieldError{Field: field, Code: apperror.CodeTooLong,
			Message: fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())}
	case "email":
		return apperror.FieldError{Field: field, Code: apperror.CodeInvalidEmail, Message: "enter a valid email address"}
	case "slug":
		return apperror.FieldError{Field: field, Code: apperror.CodeInvalidSlug,
			Message: "enter a valid slug of letters, numbers, underscores or hyphens"}
	case "username":
		return apperror.FieldError{Field: field, Code: apperror.CodeInvalidUsername,
			Message: "username may contain only letters, digits and @/./+/-/_"}
	case "oneof":
		return apperror.FieldError{Field: field, Code: apperror.CodeInvalidRole,
			Message: fmt.Sprintf("%q is not a valid choice", fmt.Sprint(fe.Value()))}
	case "gte", "lte":
		return apperror.FieldError{Field: field, Code: apperror.CodeInvalidScore,
			Message: fmt.Sprintf("score must be between %d and %d", MinScore, MaxScore)}
	default:
		return apperror.FieldError{Field: field, Code: apperror.CodeInvalid, Message: "invalid value"}
	}
}

// checkShape runs the tag rules on payload and adds their failures to c,
// skipping fields that already failed a presence check.
func (v *Validator) checkShape(c *Collector, payload any) error {
	err := v.shape.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", payload, err)
	}
	for _, fe := range fieldErrs {
		f := shapeFailure(fe)
		if c.Failed(f.Field) {
			continue
		}
		c.Check(&f)
	}
	return nil
}
