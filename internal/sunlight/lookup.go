// Package sunlight resolves a city identifier to its average daily peak
// sunlight hours. Lookups come from a CSV table (embedded or loaded from
// disk) or from a remote HTTP service, optionally chained with Fallback.
package sunlight

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"solarfarm/internal/types"
)

// MaxSunlightHours bounds any value a source may report.
const MaxSunlightHours = 24

var cityIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Lookup returns the average daily sunlight hours for a city. Unknown
// cities yield a *types.AppError with code types.ErrCodeNotFoundCity.
type Lookup interface {
	SunlightHours(ctx context.Context, cityID string) (float64, error)
}

// City is one row of a sunlight table.
type City struct {
	ID            string  `json:"city_id"`
	Name          string  `json:"name"`
	Region        string  `json:"region"`
	SunlightHours float64 `json:"sunlight_hours"`
}

// NotFound builds the not_found_city error for cityID.
func NotFound(cityID string) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeNotFoundCity,
		fmt.Sprintf("no sunlight data for city %q", cityID),
		nil,
		map[string]any{"city_id": cityID},
	)
}

// IsNotFound reports whether err is an unknown-city error.
func IsNotFound(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundCity
}

// Fallback asks Primary first and consults Secondary only when Primary
// does not know the city. Any other Primary error is returned unchanged.
type Fallback struct {
	Primary   Lookup
	Secondary Lookup
}

func (f Fallback) SunlightHours(ctx context.Context, cityID string) (float64, error) {
	hours, err := f.Primary.SunlightHours(ctx, cityID)
	if err == nil || !IsNotFound(err) || f.Secondary == nil {
		return hours, err
	}
	return f.Secondary.SunlightHours(ctx, cityID)
}

// Recorder receives one event per lookup.
type Recorder interface {
	RecordSunlightLookup(source, outcome string)
}

// Instrumented reports every lookup on Next to Recorder under Source.
type Instrumented struct {
	Next     Lookup
	Source   string
	Recorder Recorder
}

func (i Instrumented) SunlightHours(ctx context.Context, cityID string) (float64, error) {
	hours, err := i.Next.SunlightHours(ctx, cityID)
	outcome := types.OutcomeOK
	switch {
	case err == nil:
	case IsNotFound(err):
		outcome = types.OutcomeNotFound
	default:
		outcome = types.OutcomeError
	}
	i.Recorder.RecordSunlightLookup(i.Source, outcome)
	return hours, err
}
