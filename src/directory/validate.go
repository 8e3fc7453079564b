package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the profile rules shared by the console and the server. The
// returned error is a BAD_USER_INPUT *Error whose message names the first
// offending field.
func (in UpdateGroupInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	return &Error{Code: CodeBadUserInput, Message: validationMessage(err)}
}

// Normalized trims surrounding whitespace from every field.
func (in UpdateGroupInput) Normalized() UpdateGroupInput {
	in.GroupID = strings.TrimSpace(in.GroupID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Icon = strings.TrimSpace(in.Icon)
	return in
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
