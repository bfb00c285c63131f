// Package validation turns go-playground/validator results into field-level errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	CodeRequired      = "required"
	CodeInvalidEmail  = "invalid_email"
	CodeInvalidFormat = "invalid_format"
	CodeOutOfRange    = "out_of_range"
	CodeTooMany       = "too_many"
	CodeInvalidValue  = "invalid_value"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors collects field errors. The zero value is ready to use.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Errors) Add(field, code, message string) {
	*e = append(*e, FieldError{Field: field, Code: code, Message: message})
}

// Err returns nil when no field failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Has reports whether field already has an error.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// As extracts Errors from err.
func As(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Struct validates v against its `validate` tags and returns Errors keyed by json field name.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fromFieldError(fe))
	}
	return out
}

func fromFieldError(fe validator.FieldError) FieldError {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required", "notblank":
		return FieldError{Field: field, Code: CodeRequired, Message: "is required"}
	case "email":
		return FieldError{Field: field, Code: CodeInvalidEmail, Message: "must be a valid email address"}
	case "uuid", "uuid4":
		return FieldError{Field: field, Code: CodeInvalidFormat, Message: "must be a valid UUID"}
	case "max":
		if fe.Kind() == reflect.Slice {
			return FieldError{Field: field, Code: CodeTooMany, Message: fmt.Sprintf("must contain at most %s items", fe.Param())}
		}
		return FieldError{Field: field, Code: CodeOutOfRange, Message: fmt.Sprintf("must be at most %s", fe.Param())}
	case "min":
		if fe.Kind() == reflect.Slice {
			return FieldError{Field: field, Code: CodeRequired, Message: fmt.Sprintf("must contain at least %s items", fe.Param())}
		}
		return FieldError{Field: field, Code: CodeOutOfRange, Message: fmt.Sprintf("must be at least %s", fe.Param())}
	case "gte", "lte", "gt", "lt":
		return FieldError{Field: field, Code: CodeOutOfRange, Message: fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())}
	case "oneof":
		return FieldError{Field: field, Code: CodeInvalidValue, Message: "must be one of: " + fe.Param()}
	default:
		return FieldError{Field: field, Code: CodeInvalidValue, Message: "is invalid"}
	}
}

// fieldPath drops the top-level struct name: "SubmitRequest.photoKeys[2]" becomes "photoKeys[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}
