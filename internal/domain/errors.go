package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingID is wrapped by PreconditionError when an operation needs a
	// server assigned id.
	ErrMissingID = errors.New("missing id")

	// ErrCircuitOpen is returned when the transport refuses calls after
	// repeated failures.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrTypeNotCached is returned by a TypeLookup that holds no descriptor
	// under the requested name.
	ErrTypeNotCached = errors.New("type not cached")
)

// ValidationError is a local validation failure. It is never sent over the
// wire.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	if e.Value == "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s (%s=%s)", e.Message, e.Field, e.Value)
}

// Is allows errors.Is(err, &ValidationError{}) to match wrapped errors.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// PreconditionError reports a builder or operation used in the wrong state,
// such as retracting a fact without id. It also matches ValidationError.
type PreconditionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func (e *PreconditionError) Is(target error) bool {
	switch target.(type) {
	case *PreconditionError, *ValidationError:
		return true
	}
	return false
}

// MissingID reports that op needs what to carry a server assigned id.
func MissingID(op, what string) *PreconditionError {
	return &PreconditionError{Op: op, Reason: what + " has no id", Err: ErrMissingID}
}

// IllegalChainError reports a fact that cannot take part in a fact chain.
// It also matches ValidationError.
type IllegalChainError struct {
	Fact   string
	Reason string
}

func (e *IllegalChainError) Error() string {
	return fmt.Sprintf("illegal fact chain: %s: %s", e.Fact, e.Reason)
}

func (e *IllegalChainError) Is(target error) bool {
	switch target.(type) {
	case *IllegalChainError, *ValidationError:
		return true
	}
	return false
}

// TypeResolutionError is returned when a type name is unknown to the registry.
type TypeResolutionError struct {
	Kind string
	Name string
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("unknown %s type %q", e.Kind, e.Name)
}

func (e *TypeResolutionError) Is(target error) bool {
	_, ok := target.(*TypeResolutionError)
	return ok
}

// TransportError is a network, authentication or non-2xx failure.
type TransportError struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, strings.TrimSpace(string(e.Body)))
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// ConflictError is a server rejection of a request that passed local checks.
// It does not wrap the TransportError it was classified from.
type ConflictError struct {
	Status   int
	Messages []Message
	Body     []byte
}

func (e *ConflictError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("conflict: status %d", e.Status)
	}
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("conflict: %s", strings.Join(parts, "; "))
}

func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

// Template returns the message template of the first server message.
func (e *ConflictError) Template() string {
	if len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0].MessageTemplate
}

type NotFoundError struct {
	Resource string
	ID       string
	Body     []byte
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
