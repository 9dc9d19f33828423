package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/snippet-picker/internal/apperror"
)

// Field limits. validator counts runes for strings, so a ten-character mode
// name in any script is accepted.
const (
	MaxModeNameLength = 10
)

// snippetInput is what Create and Update validate. Values are trimmed before
// validation, so "required" also rejects whitespace-only input.
type snippetInput struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type modeInput struct {
	Name string `json:"name" validate:"required,max=10"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors come from
// the json tags so messages say "name", not "Name".
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct runs the struct rules and converts the first failure into
// an apperror.ValidationFailed for that field.
func validateStruct(resource string, v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	e := verrs[0]
	return apperror.ValidationFailed(e.Field(), fieldMessage(resource, e))
}

func fieldMessage(resource string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s %s is required", resource, e.Field())
	case "max":
		return fmt.Sprintf("%s %s must be %s characters or less", resource, e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s %s is invalid", resource, e.Field())
	}
}
