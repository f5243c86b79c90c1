package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is shared so struct metadata is cached once.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidationMessages maps each failing field to a readable message.
// It returns nil when err is not a validation error.
func ValidationMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	messages := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			messages[fe.Field()] = "This field is required"
		case "email":
			messages[fe.Field()] = "Enter a valid email address"
		case "max":
			messages[fe.Field()] = "Must be at most " + fe.Param() + " characters"
		default:
			messages[fe.Field()] = "Invalid value"
		}
	}
	return messages
}
