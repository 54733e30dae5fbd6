// Package gerrors implements the engine's error taxonomy: a small set
// of distinct failure kinds, each carrying a structured payload, built
// by one package-level constructor function per kind.
package gerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a GraphError for dispatch by callers.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindPermissionDenied    Kind = "PERMISSION_DENIED"
	KindNodeNotFound        Kind = "NODE_NOT_FOUND"
	KindRelationshipNotFound Kind = "RELATIONSHIP_NOT_FOUND"
	KindDuplicateRelationship Kind = "DUPLICATE_RELATIONSHIP"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
	KindQueryLimitExceeded  Kind = "QUERY_LIMIT_EXCEEDED"
	KindBackendIO           Kind = "BACKEND_IO"
)

// GraphError is the single error type returned by every engine
// operation that can fail in a typed way. It carries a structured
// Payload so callers can recover specific fields without string
// parsing.
type GraphError struct {
	Kind    Kind
	Message string
	Payload interface{}
	Cause   error
}

func (e *GraphError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GraphError) Unwrap() error { return e.Cause }

// Is reports whether err is a GraphError of the given kind.
func Is(err error, kind Kind) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// ============================================================================
// Structured payloads, one per error kind.
// ============================================================================

// ValidationPayload names the offending field and why it was rejected.
type ValidationPayload struct {
	Field  string
	Reason string
	Value  interface{}
}

// PermissionDeniedPayload reports the caller's set against the
// resource's required set.
type PermissionDeniedPayload struct {
	Required     []string
	Actual       []string
	ResourceHint string
}

// NodeNotFoundPayload names the missing node id.
type NodeNotFoundPayload struct {
	ID string
}

// RelationshipNotFoundPayload names the missing relationship triple.
type RelationshipNotFoundPayload struct {
	Source, Target, Type string
}

// DuplicateRelationshipPayload names the triple that already exists.
type DuplicateRelationshipPayload struct {
	Source, Target, Type string
}

// QueryLimitExceededPayload reports the requested limit against the
// configured ceiling.
type QueryLimitExceededPayload struct {
	Requested int
	Max       int
}

// ConcurrentModificationPayload reports the version mismatch that
// caused an optimistic-lock failure.
type ConcurrentModificationPayload struct {
	Resource string
	Expected int
	Actual   int
}

// ============================================================================
// Constructors
// ============================================================================

func Validation(field, reason string, value interface{}) *GraphError {
	return &GraphError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("validation failed on field %q: %s", field, reason),
		Payload: ValidationPayload{Field: field, Reason: reason, Value: value},
	}
}

func PermissionDenied(required, actual []string, resourceHint string) *GraphError {
	return &GraphError{
		Kind:    KindPermissionDenied,
		Message: "caller lacks permission for resource",
		Payload: PermissionDeniedPayload{Required: required, Actual: actual, ResourceHint: resourceHint},
	}
}

func NodeNotFound(id string) *GraphError {
	return &GraphError{
		Kind:    KindNodeNotFound,
		Message: fmt.Sprintf("node %q not found", id),
		Payload: NodeNotFoundPayload{ID: id},
	}
}

func RelationshipNotFound(source, target, typ string) *GraphError {
	return &GraphError{
		Kind:    KindRelationshipNotFound,
		Message: fmt.Sprintf("relationship %s-[%s]->%s not found", source, typ, target),
		Payload: RelationshipNotFoundPayload{Source: source, Target: target, Type: typ},
	}
}

func DuplicateRelationship(source, target, typ string) *GraphError {
	return &GraphError{
		Kind:    KindDuplicateRelationship,
		Message: fmt.Sprintf("relationship %s-[%s]->%s already exists", source, typ, target),
		Payload: DuplicateRelationshipPayload{Source: source, Target: target, Type: typ},
	}
}

func QueryLimitExceeded(requested, max int) *GraphError {
	return &GraphError{
		Kind:    KindQueryLimitExceeded,
		Message: fmt.Sprintf("requested limit %d exceeds maximum %d", requested, max),
		Payload: QueryLimitExceededPayload{Requested: requested, Max: max},
	}
}

func ConcurrentModification(resource string, expected, actual int) *GraphError {
	return &GraphError{
		Kind:    KindConcurrentModification,
		Message: fmt.Sprintf("expected version %d but stored version is %d", expected, actual),
		Payload: ConcurrentModificationPayload{Resource: resource, Expected: expected, Actual: actual},
	}
}

func BackendIO(op string, cause error) *GraphError {
	return &GraphError{
		Kind:    KindBackendIO,
		Message: fmt.Sprintf("backend IO failed during %s", op),
		Cause:   cause,
	}
}
