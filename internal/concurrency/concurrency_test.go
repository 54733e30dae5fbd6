package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brn2/gograph/internal/gerrors"
)

func TestCheckVersionMatch(t *testing.T) {
	assert.NoError(t, CheckVersion("n1", 3, 3))
}

func TestCheckVersionMismatch(t *testing.T) {
	err := CheckVersion("n1", 4, 3)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindConcurrentModification))
}

func TestCheckVersionSkippedWhenNotSupplied(t *testing.T) {
	assert.NoError(t, CheckVersion("n1", 7, 0))
	assert.NoError(t, CheckVersion("n1", 7, -1))
}

func TestNextVersionIncrements(t *testing.T) {
	assert.Equal(t, 2, NextVersion(1))
}
