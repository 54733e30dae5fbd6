package fs

import (
	"context"
	"testing"

	"github.com/brn2/gograph/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_PutGetDelete(t *testing.T) {
	b, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "nodes/person/000/001/abc.json", []byte(`{"id":"abc"}`)))

	got, err := b.Get(ctx, "nodes/person/000/001/abc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"abc"}`, string(got))

	require.NoError(t, b.Delete(ctx, "nodes/person/000/001/abc.json"))

	_, err = b.Get(ctx, "nodes/person/000/001/abc.json")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestBackend_GetMissing(t *testing.T) {
	b, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = b.Get(context.Background(), "nodes/person/000/001/missing.json")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestBackend_ListKeys(t *testing.T) {
	b, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "nodes/person/000/001/a.json", []byte("{}")))
	require.NoError(t, b.Put(ctx, "nodes/person/001/002/b.json", []byte("{}")))
	require.NoError(t, b.Put(ctx, "nodes/dog/000/001/c.json", []byte("{}")))

	keys, err := b.ListKeys(ctx, "nodes/person")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestBackend_DeleteMissingIsNoop(t *testing.T) {
	b, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	assert.NoError(t, b.Delete(context.Background(), "nodes/x/000/000/nope.json"))
}
