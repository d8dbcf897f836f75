// Package validation wraps a shared go-playground/validator instance and
// reduces its errors to the first failing field, named by its JSON key.
package validation

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

// FieldError describes the first rule a value failed.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s failed %s", e.Field, e.Tag)
	}
	return fmt.Sprintf("%s failed %s=%s", e.Field, e.Tag, e.Param)
}

// Validator returns the process-wide validator instance.
func Validator() *validator.Validate {
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

// Struct validates v and returns a *FieldError for the first failing field.
func Struct(v any) error {
	return firstFieldError("", Validator().Struct(v))
}

// Var validates a single value against tag, reporting failures under field.
func Var(field string, value any, tag string) error {
	return firstFieldError(field, Validator().Var(value, tag))
}

// OneOfList renders a oneof parameter as a quoted list, e.g. ["a", "b"].
func OneOfList(param string) string {
	parts := strings.Fields(param)
	for i, p := range parts {
		parts[i] = fmt.Sprintf("%q", p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func firstFieldError(field string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := fe.Field()
	if field != "" {
		name = field
	}
	return &FieldError{Field: name, Tag: fe.Tag(), Param: fe.Param()}
}
