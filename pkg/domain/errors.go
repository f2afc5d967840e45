package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrRunFinished is returned when stepping a run that already terminated or failed.
var ErrRunFinished = errors.New("run already finished")

// ErrRunLocked is returned when another writer holds the run.
var ErrRunLocked = errors.New("run is locked by another writer")

// ErrMalformedResponse marks agent output that could not be interpreted.
// Agents wrap it so the engine classifies the failure as malformed_response.
var ErrMalformedResponse = errors.New("malformed agent response")

// ErrInvariantViolation is wrapped by every State invariant failure.
var ErrInvariantViolation = errors.New("state invariant violated")

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// InvocationKind classifies why an agent call failed.
type InvocationKind string

const (
	KindTimeout           InvocationKind = "timeout"
	KindMalformedResponse InvocationKind = "malformed_response"
	KindProviderError     InvocationKind = "provider_error"
)

// AgentInvocationError is raised when an agent times out, returns garbage or
// its provider fails. The run fails; the State of the failed step is discarded.
type AgentInvocationError struct {
	Role Role
	Kind InvocationKind
	Err  error
}

func (e *AgentInvocationError) Error() string {
	return fmt.Sprintf("%s agent failed (%s): %v", e.Role, e.Kind, e.Err)
}

func (e *AgentInvocationError) Unwrap() error { return e.Err }

// RoutingDefectError signals a State/History combination the router cannot
// handle. It always indicates a bug, never bad agent output.
type RoutingDefectError struct {
	Last     []Role
	Phase    Phase
	Decision Decision
	Reason   string
}

func (e *RoutingDefectError) Error() string {
	last := make([]string, len(e.Last))
	for i, r := range e.Last {
		last[i] = string(r)
	}
	return fmt.Sprintf("routing defect: %s (history tail [%s], phase %s, decision %q)",
		e.Reason, strings.Join(last, ", "), e.Phase, e.Decision)
}

// ConfigurationError is raised before any State exists when the run
// parameters are unusable.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// FieldAuthorizationError is raised when an agent sets a field outside its
// role's allowed set.
type FieldAuthorizationError struct {
	Role  Role
	Field Field
}

func (e *FieldAuthorizationError) Error() string {
	return fmt.Sprintf("%s may not set %q", e.Role, e.Field)
}

// Malformed wraps err so that it is classified as a malformed response.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
