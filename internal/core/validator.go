package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"solarfarm/internal/estimator"
	"solarfarm/internal/types"
)

// cityIDPattern matches the slugs used as sunlight table keys.
var cityIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// ValidationError is one field failure reported to API clients.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// IsValid reports whether no blocking errors were found.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// warner is implemented by request types that can flag values which are
// legal but unusual.
type warner interface {
	ValidationWarnings() []string
}

// Validator wraps go-playground/validator with the custom tags used by
// request DTOs:
//
//	finite   rejects NaN and ±Inf
//	city_id  lowercase slug of a sunlight table entry
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the custom tags. Field
// names in errors use the json tag.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "finite", estimator.IsFinite)
	mustRegister(v, "city_id", func(fl validator.FieldLevel) bool {
		return cityIDPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v, logger: logger}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

// ValidateStruct validates s and returns nil or a *types.AppError whose code
// comes from the first failing tag. Every failure is listed under
// Details["validation_errors"].
func (v *Validator) ValidateStruct(s any) error {
	errs := v.collect(s)
	if len(errs) == 0 {
		return nil
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(errs[0].Code),
		errs[0].Message,
		nil,
		map[string]any{"validation_errors": errs},
	)
}

// ValidateStructWithWarnings returns errors and, when s implements
// ValidationWarnings, its advisory warnings.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	res := ValidationResult{Errors: v.collect(s)}
	if w, ok := s.(warner); ok && res.IsValid() {
		res.Warnings = w.ValidationWarnings()
	}
	return res
}

func (v *Validator) collect(s any) []ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: a programming error such as passing nil.
		v.logger.Error("struct validation could not run", "error", err)
		return []ValidationError{{
			Field:   "",
			Code:    string(types.ErrCodeValidationInvalidInput),
			Message: "request could not be validated",
		}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Code:    string(tagToErrorCode(fe.Tag())),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "EstimateRequest.land_area" becomes
// "land_area" and "BatchRequest.scenarios[2].panel_area" becomes
// "scenarios[2].panel_area".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func tagToErrorCode(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "finite":
		return types.ErrCodeValidationNotFinite
	case "gt", "gte", "lt", "lte", "min", "max", "oneof":
		return types.ErrCodeValidationOutOfRange
	default:
		return types.ErrCodeValidationInvalidInput
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "finite":
		return field + " must be a finite number"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "city_id":
		return field + " must be a lowercase city slug"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
