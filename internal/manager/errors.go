package manager

import "fmt"

// insufficientResourcesError signals that no admissible load/eviction plan
// exists for the request.
type insufficientResourcesError struct{ id string }

func (e insufficientResourcesError) Error() string {
	return "insufficient resources to load model: " + e.id
}

// IsInsufficientResources reports whether err indicates no admissible plan.
func IsInsufficientResources(err error) bool {
	_, ok := err.(insufficientResourcesError)
	return ok
}

// underPressureError signals the critical-pressure conservative reject.
type underPressureError struct {
	id     string
	detail string
}

func (e underPressureError) Error() string {
	msg := "system under pressure, refusing load: " + e.id
	if e.detail != "" {
		msg += " (" + e.detail + ")"
	}
	return msg
}

// IsUnderPressure reports whether err is the critical-pressure bias reject.
func IsUnderPressure(err error) bool {
	_, ok := err.(underPressureError)
	return ok
}

// loadTimeoutError signals a bounded wait exceeded while loading.
type loadTimeoutError struct{ id string }

func (e loadTimeoutError) Error() string { return "load timed out: " + e.id }

// IsLoadTimeout reports whether err indicates a load wait expired.
func IsLoadTimeout(err error) bool {
	_, ok := err.(loadTimeoutError)
	return ok
}

// evictionTimeoutError signals a victim failed to drain within the bounded
// wait; the dependent load is abandoned rather than stalled.
type evictionTimeoutError struct{ victim string }

func (e evictionTimeoutError) Error() string { return "eviction timed out: " + e.victim }

// IsEvictionTimeout reports whether err indicates a victim drain expired.
func IsEvictionTimeout(err error) bool {
	_, ok := err.(evictionTimeoutError)
	return ok
}

// engineLoadError signals the native engine rejected the artifact. The
// descriptor transitions to failed and stays there until re-registered.
type engineLoadError struct {
	id    string
	cause error
}

func (e engineLoadError) Error() string {
	return fmt.Sprintf("engine failed to load %s: %v", e.id, e.cause)
}

func (e engineLoadError) Unwrap() error { return e.cause }

// IsEngineLoadFailure reports whether err indicates an engine load failure.
func IsEngineLoadFailure(err error) bool {
	_, ok := err.(engineLoadError)
	return ok
}

// overloadedError signals queue timeout/overflow for 429 mapping.
type overloadedError struct{ modelID string }

func (e overloadedError) Error() string { return "overloaded: " + e.modelID }

// IsOverloaded reports whether err indicates backpressure (return 429).
func IsOverloaded(err error) bool {
	_, ok := err.(overloadedError)
	return ok
}

// unknownModelError is returned when a requested model id is not registered.
type unknownModelError struct{ id string }

func (e unknownModelError) Error() string { return "unknown model: " + e.id }

// ErrUnknownModel constructs an unknownModelError.
func ErrUnknownModel(id string) error { return unknownModelError{id: id} }

// IsUnknownModel reports whether the error indicates a missing model id.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// staleResourceError signals the monitor fail-safe: resource data is too old
// to trust.
type staleResourceError struct{}

func (staleResourceError) Error() string { return "resource data is stale" }

// ErrStaleResourceData is the singleton stale-data error.
func ErrStaleResourceData() error { return staleResourceError{} }

// IsStaleResourceData reports whether err indicates stale monitor data.
func IsStaleResourceData(err error) bool {
	_, ok := err.(staleResourceError)
	return ok
}

// dependencyUnavailableError signals a missing external dependency (e.g., the
// llama runtime) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed
// runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}

// invariantError marks a programming-error fatal condition. It aborts the
// specific operation and is logged; it never corrupts state for other models.
type invariantError struct{ msg string }

func (e invariantError) Error() string { return "invariant violation: " + e.msg }

// IsInvariantViolation reports whether err indicates an internal invariant
// violation.
func IsInvariantViolation(err error) bool {
	_, ok := err.(invariantError)
	return ok
}
