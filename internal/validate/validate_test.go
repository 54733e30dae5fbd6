package validate

import (
	"strings"
	"testing"

	"github.com/brn2/gograph/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNodeForCreate_OK(t *testing.T) {
	v := New()
	n := &model.Node{
		Type:        "person",
		Properties:  map[string]model.Value{"name": model.String("Alice")},
		Permissions: []string{"read"},
	}
	require.NoError(t, v.ValidateNodeForCreate(n))
}

func TestValidateNodeForCreate_RejectsReservedKey(t *testing.T) {
	v := New()
	n := &model.Node{
		Type:        "person",
		Properties:  map[string]model.Value{"__proto__": model.String("x")},
		Permissions: []string{"read"},
	}
	err := v.ValidateNodeForCreate(n)
	require.Error(t, err)
}

func TestValidateNodeForCreate_RejectsEmptyPermissions(t *testing.T) {
	v := New()
	n := &model.Node{Type: "person", Properties: map[string]model.Value{}}
	err := v.ValidateNodeForCreate(n)
	require.Error(t, err)
}

func TestValidateNodeForCreate_RejectsBadTypeTag(t *testing.T) {
	v := New()
	n := &model.Node{Type: "bad tag!", Properties: map[string]model.Value{}, Permissions: []string{"r"}}
	require.Error(t, v.ValidateNodeForCreate(n))
}

func TestValidateNodeForUpdate_RejectsImmutableFields(t *testing.T) {
	v := New()
	err := v.ValidateNodeForUpdate(map[string]interface{}{"id": "x"})
	require.Error(t, err)
}

func TestValidateNodeForUpdate_RejectsEmptyPayload(t *testing.T) {
	v := New()
	require.Error(t, v.ValidateNodeForUpdate(map[string]interface{}{}))
}

func TestValidateQueryLimit_Defaults(t *testing.T) {
	v := New()
	limit, err := v.ValidateQueryLimit(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryLimit, limit)
}

func TestValidateQueryLimit_ExceedsCeiling(t *testing.T) {
	v := New()
	_, err := v.ValidateQueryLimit(MaxQueryLimit + 1)
	require.Error(t, err)
}

func TestValidateProperties_NestedDepthBound(t *testing.T) {
	v := New()
	var nested model.Value = model.String("leaf")
	for i := 0; i < model.MaxNestingDepth+2; i++ {
		nested = model.Map(map[string]model.Value{"n": nested})
	}
	err := v.validateProperties(map[string]model.Value{"deep": nested})
	require.Error(t, err)
}

func TestValidateProperties_LargeValueRejected(t *testing.T) {
	v := New()
	big := strings.Repeat("a", MaxPropertyValueSize+10)
	err := v.validateProperties(map[string]model.Value{"blob": model.String(big)})
	require.Error(t, err)
}
