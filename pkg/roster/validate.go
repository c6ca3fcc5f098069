package roster

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/shift-roster-api/pkg/models"
)

// ValidationError is a structural problem with a roster. The pipeline stops
// before the engine runs and no table is produced.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// checkStruct runs the struct tag rules and turns the first failure into a
// readable message.
func checkStruct(r *models.Roster) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidf("invalid roster: %v", err)
	}

	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return invalidf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return invalidf("%s must contain at least %s entries", field, fe.Param())
		}
		return invalidf("%s must be at least %s", field, fe.Param())
	case "max":
		return invalidf("%s must be at most %s", field, fe.Param())
	default:
		return invalidf("%s failed the %s rule", field, fe.Tag())
	}
}
