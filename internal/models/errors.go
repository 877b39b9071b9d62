package models

import "fmt"

// ConfigurationError indicates the run cannot produce valid results for any
// scene: band/table count mismatch, missing or corrupt lookup table, bad
// config values. Always fatal at startup.
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

// IsTransient returns false as configuration errors are permanent
func (e *ConfigurationError) IsTransient() bool {
	return false
}

// OutOfDomainError indicates an atmospheric or geometric input outside a
// lookup table's valid interpolation range. Extrapolated radiative-transfer
// responses are physically meaningless, so this is an error rather than a
// silent extrapolation. Scene-scoped: the scene is failed, the batch continues.
type OutOfDomainError struct {
	Input string  // axis name, e.g. "solar_zenith"
	Value float64 // requested value
	Min   float64 // table domain lower bound
	Max   float64 // table domain upper bound
	Band  int     // 1-based band number, 0 if not band-specific
}

func (e *OutOfDomainError) Error() string {
	if e.Band > 0 {
		return fmt.Sprintf("band %d: %s=%g outside table domain [%g, %g]", e.Band, e.Input, e.Value, e.Min, e.Max)
	}
	return fmt.Sprintf("%s=%g outside table domain [%g, %g]", e.Input, e.Value, e.Min, e.Max)
}

// IsTransient returns false as domain violations are permanent for a scene
func (e *OutOfDomainError) IsTransient() bool {
	return false
}

// NumericError indicates a non-physical numeric condition: division by a zero
// correction offset, a solar zenith angle outside [0, 90]. Scene-scoped.
type NumericError struct {
	Quantity string
	Value    float64
	Message  string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric error: %s=%g: %s", e.Quantity, e.Value, e.Message)
}

// IsTransient returns false as numeric errors are data-quality problems
func (e *NumericError) IsTransient() bool {
	return false
}

// ExternalServiceError wraps a failure from the imagery catalog, atmospheric
// parameter service or terrain service. Transient failures (timeouts, 5xx)
// are retried with bounded attempts before the scene is marked failed.
type ExternalServiceError struct {
	Service   string
	Operation string
	Err       error
	Transient bool
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s service: %s failed: %v", e.Service, e.Operation, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a retry may succeed
func (e *ExternalServiceError) IsTransient() bool {
	return e.Transient
}
