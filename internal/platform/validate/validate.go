// Package validate checks request payloads with struct tags and turns the
// first failure into a user-facing validation error.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
			d, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil && !d.After(time.Now().UTC())
		})
	})
	return v
}

// Struct validates s. Failures are returned as apperr validation errors.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return apperr.Validation(message(ves[0]))
	}
	return apperr.Validation("invalid request")
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "phone":
		return field + " must be 10 to 15 digits, optionally starting with +"
	case "date":
		return field + " must be a date in YYYY-MM-DD format"
	case "notfuture":
		return field + " cannot be in the future"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// Phone strips spaces, dashes and brackets so "+91 98765-43210" validates.
func Phone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// Date parses a YYYY-MM-DD value already checked by the "date" tag.
func Date(s string) time.Time {
	d, _ := time.Parse(DateLayout, s)
	return d
}

// OptionalDate parses s when it is non-empty.
func OptionalDate(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d := Date(s)
	return &d
}
