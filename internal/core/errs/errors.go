// Package errs holds the error taxonomy shared by the ingestion, traversal and
// resolution engines. Callers classify failures with errors.Is against the
// sentinels below; concrete errors wrap one of them.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema marks a malformed or inconsistent ontology. Fatal at load time.
	ErrSchema = errors.New("schema error")
	// ErrValidation marks a row that fails the schema contract. Row scoped.
	ErrValidation = errors.New("validation error")
	// ErrResolutionAmbiguity marks a row whose endpoint columns could not be resolved.
	ErrResolutionAmbiguity = errors.New("column resolution ambiguity")
	// ErrMissingEndpoint marks a relationship whose endpoint node is not in the store.
	ErrMissingEndpoint = errors.New("missing endpoint")
	// ErrStore marks a connectivity, timeout or query failure in the graph store.
	ErrStore = errors.New("store error")
	// ErrInvalidArgument marks caller input that is rejected without coercion.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a lookup of an undeclared type or an absent entity.
	ErrNotFound = errors.New("not found")
)

// SchemaError reports where in the ontology document a problem was found.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ValidationError reports a row that violates its object type's contract.
type ValidationError struct {
	Type   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s.%s: %s", e.Type, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing schema type or entity.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidArgument builds an ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Store wraps err as an ErrStore while keeping the cause reachable.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
