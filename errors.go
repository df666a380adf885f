package nodetracer

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the capture runtime. Match with errors.Is.
var (
	// ErrNoActiveTrace is returned when a span is opened from a context
	// that does not carry an active trace.
	ErrNoActiveTrace = errors.New("nodetracer: no active trace in context")

	// ErrSpanClosed is returned by span operations invoked after the
	// span has closed. Link is the one exception - edges may be added
	// until the trace is finalized.
	ErrSpanClosed = errors.New("nodetracer: span already closed")

	// ErrTraceFinalized is returned when a mutation is attempted on a
	// graph whose root span has closed.
	ErrTraceFinalized = errors.New("nodetracer: trace already finalized")

	// ErrTraceNotFound is returned by Backend.Load for an unknown trace id.
	ErrTraceNotFound = errors.New("nodetracer: trace not found")
)

// GraphConsistencyError reports a structural violation: an empty node
// name, an unknown enumerant, a duplicate node id, or an edge that
// references a node absent from the owning graph.
type GraphConsistencyError struct {
	Reason string
}

func (e *GraphConsistencyError) Error() string {
	return "nodetracer: graph consistency: " + e.Reason
}

func consistencyErrorf(format string, args ...any) *GraphConsistencyError {
	return &GraphConsistencyError{Reason: fmt.Sprintf(format, args...)}
}

// DeserializationError reports a persisted trace document that could
// not be decoded into a valid graph. Load never returns a partially
// built graph alongside one of these.
type DeserializationError struct {
	Reason string
	Err    error
}

func (e *DeserializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nodetracer: deserialize: %s: %v", e.Reason, e.Err)
	}
	return "nodetracer: deserialize: " + e.Reason
}

func (e *DeserializationError) Unwrap() error { return e.Err }

func deserializationErrorf(err error, format string, args ...any) *DeserializationError {
	return &DeserializationError{Reason: fmt.Sprintf(format, args...), Err: err}
}
