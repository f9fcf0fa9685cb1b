package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		// Report fields by their YAML key.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks the configuration and reports every invalid field in one
// config-category error.
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return core.ErrInvalidConfig.WithCause(err)
	}

	fields := make(map[string]interface{}, len(ves))
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msg := fieldMessage(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), msg))
	}

	return core.ErrInvalidConfig.
		WithMessage("invalid configuration: " + strings.Join(msgs, "; ")).
		WithDetails(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("must be a URL, got %q", fe.Value())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
}
