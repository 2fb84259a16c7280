package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricEstimate        = "Estimate"
	MetricSunlightLookup  = "SunlightLookup"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimOutcome  = "Outcome"
	DimSource   = "Source"

	// Metric Namespace
	MetricNamespace = "SolarFarm"
)

// Estimate outcomes recorded under the Outcome dimension.
const (
	OutcomeOK          = "ok"
	OutcomeNever       = "never"
	OutcomeZeroRevenue = "zero_revenue"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
)

// Sunlight lookup sources recorded under the Source dimension.
const (
	SourceTable = "table"
	SourceHTTP  = "http"
)
