// Package validators plugs go-playground/validator into Echo and turns its
// failures into a field-keyed error map
package validators

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	nonstandard "github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/anonto42/socialape/backend/internal/models"
)

// handles become document IDs and URL path segments
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// CustomValidator implements echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", nonstandard.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("handle", isHandle); err != nil {
		panic(err)
	}
	// report errors under the errkey tag, else the json name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if key := f.Tag.Get("errkey"); key != "" {
			return key
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate returns a *models.AppError carrying one message per failing field
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return models.NewValidationError(fields)
}

func isHandle(fl validator.FieldLevel) bool {
	return handlePattern.MatchString(fl.Field().String())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "Must not be empty"
	case "email":
		return "Must be a valid email address"
	case "eqfield":
		return "Passwords must match"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "handle":
		return "Must contain only letters, numbers, '_' or '-'"
	}
	return "Is invalid"
}
