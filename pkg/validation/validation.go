// Package validation checks request DTOs with go-playground/validator and
// converts failures into COMMON_010 application errors.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

var periodPattern = regexp.MustCompile(`^\d{4}-[Qq]?[1-4]$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the engine's custom tags:
//
//	period   "2025-Q4" style quarter labels
//	dime     integer DIME sub-score in [0, 3]
//	target   control target, Likelihood or Impact
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
			return periodPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("dime", func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n >= 0 && n <= 3
		})
		_ = v.RegisterValidation("target", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "Likelihood" || s == "Impact"
		})
		instance = v
	})
	return instance
}

// Struct validates s. The returned error lists every failing field, sorted.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	sort.Strings(msgs)
	return apperrors.New(apperrors.ErrCodeValidation, "invalid request").WithDetail(strings.Join(msgs, "; "))
}

// Var validates a single value against a tag string.
func Var(field string, value interface{}, tag string) error {
	if err := Validator().Var(value, tag); err != nil {
		return apperrors.NewValidationError(field, "invalid "+field)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of [" + fe.Param() + "]"
	case "period":
		return field + " must look like 2025-Q4"
	case "dime":
		return field + " must be between 0 and 3"
	case "target":
		return field + " must be Likelihood or Impact"
	default:
		return field + " failed " + fe.Tag()
	}
}

//Personal.AI order the ending
