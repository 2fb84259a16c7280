// Package scenario reads estimate scenarios from YAML files. A scenario
// uses the same keys as the JSON estimate input; any key left out keeps
// its dashboard default. The exception is kwh_payment, which follows the
// JSON rule: when the file omits it (or sets it to null) the model's
// revenue_rate applies. An optional model block overrides the model
// factors for that scenario only.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"solarfarm/internal/estimator"
	"solarfarm/internal/types"
)

// ModelOverride replaces individual model factors.
type ModelOverride struct {
	ShadingFactor     *float64 `yaml:"shading_factor"`
	AccessPathsFactor *float64 `yaml:"access_paths_factor"`
	RevenueRate       *float64 `yaml:"revenue_rate"`
}

// Scenario is one parsed scenario file.
type Scenario struct {
	Name   string          `yaml:"name"`
	CityID string          `yaml:"city_id"`
	Model  *ModelOverride  `yaml:"model"`
	Input  estimator.Input `yaml:",inline"`
}

// ApplyModel returns base with this scenario's overrides applied.
func (s *Scenario) ApplyModel(base estimator.Model) estimator.Model {
	if s.Model == nil {
		return base
	}
	return base.Override(s.Model.ShadingFactor, s.Model.AccessPathsFactor, s.Model.RevenueRate)
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a single YAML document on top of estimator.DefaultInput
// with kwh_payment cleared. Unknown keys are rejected. The input itself is
// not validated here; Estimate does that.
func Parse(data []byte) (*Scenario, error) {
	in := estimator.DefaultInput()
	in.KWhPayment = nil
	s := &Scenario{Input: in}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidInput,
			"parsing scenario YAML: "+err.Error(),
			err,
		)
	}
	return s, nil
}
