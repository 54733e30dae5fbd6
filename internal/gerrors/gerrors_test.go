package gerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := NodeNotFound("n1")
	assert.True(t, Is(err, KindNodeNotFound))
	assert.False(t, Is(err, KindValidation))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("boom"), KindNodeNotFound))
}

func TestIsUnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("while loading: %w", NodeNotFound("n1"))
	assert.True(t, Is(wrapped, KindNodeNotFound))
}

func TestGraphErrorMessageWithoutCause(t *testing.T) {
	err := Validation("name", "must not be empty", "")
	assert.Contains(t, err.Error(), "VALIDATION")
	assert.Contains(t, err.Error(), "name")
}

func TestGraphErrorMessageWithCause(t *testing.T) {
	cause := errors.New("disk full")
	err := BackendIO("put", cause)
	assert.Contains(t, err.Error(), "BACKEND_IO")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestNodeNotFoundPayload(t *testing.T) {
	err := NodeNotFound("n42")
	payload, ok := err.Payload.(NodeNotFoundPayload)
	require.True(t, ok)
	assert.Equal(t, "n42", payload.ID)
}

func TestDuplicateRelationshipPayload(t *testing.T) {
	err := DuplicateRelationship("a", "b", "FRIENDS")
	payload, ok := err.Payload.(DuplicateRelationshipPayload)
	require.True(t, ok)
	assert.Equal(t, "a", payload.Source)
	assert.Equal(t, "b", payload.Target)
	assert.Equal(t, "FRIENDS", payload.Type)
}

func TestConcurrentModificationPayload(t *testing.T) {
	err := ConcurrentModification("node:n1", 3, 5)
	payload, ok := err.Payload.(ConcurrentModificationPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.Expected)
	assert.Equal(t, 5, payload.Actual)
	assert.True(t, Is(err, KindConcurrentModification))
}

func TestPermissionDeniedPayload(t *testing.T) {
	err := PermissionDenied([]string{"admin"}, []string{"read"}, "node:n1")
	payload, ok := err.Payload.(PermissionDeniedPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, payload.Required)
	assert.Equal(t, []string{"read"}, payload.Actual)
}

func TestQueryLimitExceededPayload(t *testing.T) {
	err := QueryLimitExceeded(500, 100)
	payload, ok := err.Payload.(QueryLimitExceededPayload)
	require.True(t, ok)
	assert.Equal(t, 500, payload.Requested)
	assert.Equal(t, 100, payload.Max)
}

func TestRelationshipNotFoundPayload(t *testing.T) {
	err := RelationshipNotFound("a", "b", "FRIENDS")
	payload, ok := err.Payload.(RelationshipNotFoundPayload)
	require.True(t, ok)
	assert.Equal(t, "a", payload.Source)
	assert.Equal(t, "b", payload.Target)
}
