// Package config defines the runtime configuration for the solar farm
// estimator services. Configuration is loaded once at process start (or Lambda
// cold start) and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any invalid value makes LoadConfig fail so the process exits on startup.
package config

import (
	"time"

	"solarfarm/internal/estimator"
	"solarfarm/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"solarfarm-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Model         ModelConfig
	Sunlight      SunlightConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// RequestTimeout should be the Lambda timeout minus one second in
	// production so handlers see cancellation before the hard kill.
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s" validate:"gt=0"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ModelConfig overrides the estimator factors. Defaults match
// estimator.DefaultModel.
type ModelConfig struct {
	ShadingFactor     float64 `envconfig:"MODEL_SHADING_FACTOR" default:"0.8" validate:"gt=0,lte=1"`
	AccessPathsFactor float64 `envconfig:"MODEL_ACCESS_PATHS_FACTOR" default:"0.9" validate:"gt=0,lte=1"`
	RevenueRate       float64 `envconfig:"MODEL_REVENUE_RATE" default:"0.10" validate:"gte=0"`
}

// Estimator converts the configured factors into an estimator.Model.
func (m ModelConfig) Estimator() estimator.Model {
	return estimator.Model{
		ShadingFactor:     m.ShadingFactor,
		AccessPathsFactor: m.AccessPathsFactor,
		RevenueRate:       m.RevenueRate,
	}
}

// SunlightConfig selects where city sunlight hours come from. With no
// TablePath the embedded table is used; APIURL adds a remote lookup that is
// consulted first.
type SunlightConfig struct {
	TablePath string        `envconfig:"SUNLIGHT_TABLE_PATH"`
	APIURL    string        `envconfig:"SUNLIGHT_API_URL" validate:"omitempty,url"`
	APIKey    SecretString  `envconfig:"SUNLIGHT_API_KEY"` // usually resolved via SUNLIGHT_API_KEY_SSM_PARAM
	Timeout   time.Duration `envconfig:"SUNLIGHT_API_TIMEOUT" default:"5s" validate:"gt=0"`
}

// AWSConfig holds regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SolarFarm"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
