package shardplacer

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_StableAcrossInstances(t *testing.T) {
	p1 := New(DefaultShards, DefaultLevels)
	p2 := New(DefaultShards, DefaultLevels)

	require.Equal(t, p1.Path("test-id-123"), p2.Path("test-id-123"))
}

func TestPath_MatchesShardPattern(t *testing.T) {
	p := New(DefaultShards, DefaultLevels)
	path := p.Path("test-id-123")

	matched, err := regexp.MatchString(`^\d{3}/\d{3}$`, path)
	require.NoError(t, err)
	assert.True(t, matched, "path %q should match ^\\d{3}/\\d{3}$", path)
}

func TestPath_DifferentIDsDifferentPaths(t *testing.T) {
	p := New(DefaultShards, DefaultLevels)
	assert.NotEqual(t, p.Path("test-id-1"), p.Path("test-id-2"))
}

func TestRelationshipPath_DirectionSensitive(t *testing.T) {
	p := New(DefaultShards, DefaultLevels)
	assert.NotEqual(t, p.RelationshipPath("a", "b"), p.RelationshipPath("b", "a"))
}

func TestPath_AcceptsEmptyAndUnicode(t *testing.T) {
	p := New(DefaultShards, DefaultLevels)
	assert.NotPanics(t, func() {
		_ = p.Path("")
		_ = p.Path("日本語-id-☃")
	})
}

func TestNew_DefaultsOnNonPositive(t *testing.T) {
	p := New(0, 0)
	assert.Equal(t, DefaultShards, p.numShards)
	assert.Equal(t, DefaultLevels, p.levels)
}
