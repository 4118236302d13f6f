package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a client mistake. Its message is safe to return as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidAmount      = &ValidationError{Msg: "Invalid amount"}
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRequestInProgress  = errors.New("a request with this idempotency key is still in progress")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the `validate` tags on v and turns the first failure
// into a ValidationError naming the field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalidf("%s is required", field)
	case "email":
		return invalidf("%s must be a valid email address", field)
	case "min":
		return invalidf("%s must be at least %s", field, fe.Param())
	case "max":
		return invalidf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return invalidf("%s must be one of: %s", field, fe.Param())
	}
	return invalidf("%s is invalid", field)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
