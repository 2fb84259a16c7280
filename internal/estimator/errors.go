package estimator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"solarfarm/internal/types"
)

// Sentinel errors. Every failure returned by this package is a
// *types.AppError wrapping one of these, so callers can branch with
// errors.Is without caring about codes.
var (
	ErrInvalidInput = errors.New("invalid estimator input")
	ErrInvalidModel = errors.New("invalid estimator model")
	ErrZeroRevenue  = errors.New("annual revenue is zero")
)

// FieldViolation describes one field that failed its constraint.
type FieldViolation struct {
	Field   string  `json:"field"`
	Rule    string  `json:"rule"`
	Param   string  `json:"param,omitempty"`
	Value   float64 `json:"-"`
	Message string  `json:"message"`
}

type fieldErrorKind struct {
	code     types.ErrorCode
	sentinel error
	message  string
}

var (
	errInvalidInput = fieldErrorKind{types.ErrCodeValidationInvalidInput, ErrInvalidInput, "estimator input is invalid"}
	errInvalidModel = fieldErrorKind{types.ErrCodeValidationInvalidModel, ErrInvalidModel, "estimator model is invalid"}
)

func newFieldError(kind fieldErrorKind, violations []FieldViolation) *types.AppError {
	fields := make([]string, len(violations))
	for i, v := range violations {
		fields[i] = v.Field
	}
	return types.NewAppErrorWithDetails(
		kind.code,
		fmt.Sprintf("%s: %s", kind.message, strings.Join(fields, ", ")),
		kind.sentinel,
		map[string]any{"validation_errors": violations},
	)
}

// Violations extracts the per-field failures from an error returned by
// Estimate or Model.Validate. It returns nil for any other error.
func Violations(err error) []FieldViolation {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	v, _ := appErr.Details["validation_errors"].([]FieldViolation)
	return v
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		// Registration only fails on an empty tag or nil func.
		_ = v.RegisterValidation("finite", IsFinite)
		validate = v
	})
	return validate
}

// IsFinite is a validator.Func rejecting NaN and ±Inf. Non-float fields pass.
func IsFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return true
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// validateFields runs the struct tags on s and flattens the result.
func validateFields(s any) []FieldViolation {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldViolation{{Field: "*", Rule: "invalid", Message: err.Error()}}
	}

	out := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		fv := FieldViolation{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		}
		if f, ok := fe.Value().(float64); ok {
			fv.Value = f
		} else if p, ok := fe.Value().(*float64); ok && p != nil {
			fv.Value = *p
		}
		fv.Message = violationMessage(fv)
		out = append(out, fv)
	}
	return out
}

func violationMessage(v FieldViolation) string {
	switch v.Rule {
	case "finite":
		return v.Field + " must be a finite number"
	case "gt":
		return v.Field + " must be greater than " + v.Param
	case "gte":
		return v.Field + " must be at least " + v.Param
	case "lte":
		return v.Field + " must be at most " + v.Param
	case "lt":
		return v.Field + " must be less than " + v.Param
	default:
		return v.Field + " failed " + v.Rule
	}
}
