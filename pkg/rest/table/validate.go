package table

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report yaml keys
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}

			return name
		})
	})

	return validate
}

// validateTable checks the struct tags and reports every violation with
// its yaml path.
func validateTable(table *Table) error {
	err := getValidator().Struct(table)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		path := strings.TrimPrefix(e.Namespace(), "Table.")
		messages = append(messages, path+": "+formatValidationError(e))
	}

	return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(messages, "; "))
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "startswith":
		return "must start with " + e.Param()
	case "unique":
		return "must be unique by " + strings.ToLower(e.Param())
	default:
		return "is invalid"
	}
}
