package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brn2/gograph/internal/model"
)

func TestEngineBatchCommitsAllOnSuccess(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	err = e.Batch(func() error {
		e.fabric.RemoveNode(n.ID)
		return nil
	})
	require.NoError(t, err)

	_, hit := e.fabric.FetchNode(n.ID)
	assert.False(t, hit, "queued RemoveNode must be applied once Batch's fn returns nil")
}

func TestEngineBatchDiscardsAllOnError(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateNode(ctx, "person", map[string]model.Value{"name": model.String("ada")}, nil, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = e.Batch(func() error {
		e.fabric.RemoveNode(n.ID)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The queued RemoveNode was discarded, not applied, so the node is
	// still cached.
	_, hit := e.fabric.FetchNode(n.ID)
	assert.True(t, hit, "fn returning an error must discard the queued mutation")
}
