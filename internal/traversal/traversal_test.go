package traversal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/backend"
	fsbackend "github.com/brn2/gograph/internal/backend/fs"
	"github.com/brn2/gograph/internal/cache"
	"github.com/brn2/gograph/internal/model"
	"github.com/brn2/gograph/internal/shardplacer"
)

func newTestEngine(t *testing.T) (*Engine, *fsbackend.Backend, *cache.Fabric) {
	t.Helper()
	be, err := fsbackend.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	fabric := cache.New(cache.Config{TTL: time.Minute, MaxSize: 1000}, zap.NewNop())
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)
	return New(fabric, be, placer, zap.NewNop()), be, fabric
}

func putNode(t *testing.T, be *fsbackend.Backend, placer *shardplacer.Placer, n *model.Node) {
	t.Helper()
	data, err := json.Marshal(n)
	require.NoError(t, err)
	key := backend.NodeKey(n.Type, placer.Path(n.ID), n.ID)
	require.NoError(t, be.Put(context.Background(), key, data))
}

func putRelationship(t *testing.T, be *fsbackend.Backend, placer *shardplacer.Placer, r *model.Relationship) {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	key := backend.RelationshipKey(r.Type, placer.RelationshipPath(r.Source, r.Target), r.Source, r.Target)
	require.NoError(t, be.Put(context.Background(), key, data))
}

func TestRelatedColdScanThenMemoHit(t *testing.T) {
	eng, be, fabric := newTestEngine(t)
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)

	putNode(t, be, placer, &model.Node{ID: "a", Type: "Person", Permissions: []string{"read"}, Version: 1})
	putNode(t, be, placer, &model.Node{ID: "b", Type: "Person", Permissions: []string{"read"}, Version: 1})
	putRelationship(t, be, placer, &model.Relationship{Source: "a", Target: "b", Type: "FOLLOWS", Version: 1})

	nodes, err := eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionOut, nil, false)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "b", nodes[0].ID)

	// Second call must be served from the memo without another scan;
	// deleting the backend record proves it wasn't re-read.
	require.NoError(t, be.Delete(context.Background(), backend.RelationshipKey("FOLLOWS", placer.RelationshipPath("a", "b"), "a", "b")))
	ids, hit := fabric.MemoGet("a", "FOLLOWS", model.DirectionOut)
	require.True(t, hit)
	assert.Equal(t, []string{"b"}, ids)

	nodes2, err := eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionOut, nil, false)
	require.NoError(t, err)
	require.Len(t, nodes2, 1)
	assert.Equal(t, "b", nodes2[0].ID)
}

func TestRelatedDirectionIn(t *testing.T) {
	eng, be, _ := newTestEngine(t)
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)

	putNode(t, be, placer, &model.Node{ID: "a", Type: "Person", Version: 1})
	putNode(t, be, placer, &model.Node{ID: "b", Type: "Person", Version: 1})
	putRelationship(t, be, placer, &model.Relationship{Source: "a", Target: "b", Type: "FOLLOWS", Version: 1})

	nodes, err := eng.Related(context.Background(), "b", "FOLLOWS", model.DirectionIn, nil, false)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].ID)
}

func TestRelatedDirectionBothUnionsOutAndIn(t *testing.T) {
	eng, be, _ := newTestEngine(t)
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)

	putNode(t, be, placer, &model.Node{ID: "a", Type: "Person", Version: 1})
	putNode(t, be, placer, &model.Node{ID: "b", Type: "Person", Version: 1})
	putNode(t, be, placer, &model.Node{ID: "c", Type: "Person", Version: 1})
	putRelationship(t, be, placer, &model.Relationship{Source: "a", Target: "b", Type: "FOLLOWS", Version: 1})
	putRelationship(t, be, placer, &model.Relationship{Source: "c", Target: "a", Type: "FOLLOWS", Version: 1})

	nodes, err := eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionBoth, nil, false)
	require.NoError(t, err)
	ids := []string{nodes[0].ID, nodes[1].ID}
	assert.ElementsMatch(t, []string{"b", "c"}, ids)
}

func TestRelatedAppliesVisibility(t *testing.T) {
	eng, be, _ := newTestEngine(t)
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)

	putNode(t, be, placer, &model.Node{ID: "a", Type: "Person", Version: 1})
	putNode(t, be, placer, &model.Node{ID: "secret", Type: "Person", Permissions: []string{"admin"}, Version: 1})
	putRelationship(t, be, placer, &model.Relationship{Source: "a", Target: "secret", Type: "FOLLOWS", Version: 1})

	visible := func(n *model.Node) bool { return n.ID != "secret" }
	nodes, err := eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionOut, visible, false)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestRelatedSkipCacheBypassesMemoAndRereadsBackend(t *testing.T) {
	eng, be, fabric := newTestEngine(t)
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)

	putNode(t, be, placer, &model.Node{ID: "a", Type: "Person", Version: 1})
	putNode(t, be, placer, &model.Node{ID: "b", Type: "Person", Version: 1})
	putRelationship(t, be, placer, &model.Relationship{Source: "a", Target: "b", Type: "FOLLOWS", Version: 1})

	nodes, err := eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionOut, nil, false)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	_, hit := fabric.MemoGet("a", "FOLLOWS", model.DirectionOut)
	require.True(t, hit, "first call must have populated the memo")

	require.NoError(t, be.Delete(context.Background(), backend.RelationshipKey("FOLLOWS", placer.RelationshipPath("a", "b"), "a", "b")))

	nodes, err = eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionOut, nil, true)
	require.NoError(t, err)
	assert.Empty(t, nodes, "skipCache must re-read the backend instead of trusting the populated memo")
}

func TestRelatedNoEdgesReturnsEmpty(t *testing.T) {
	eng, be, _ := newTestEngine(t)
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)
	putNode(t, be, placer, &model.Node{ID: "a", Type: "Person", Version: 1})

	nodes, err := eng.Related(context.Background(), "a", "FOLLOWS", model.DirectionOut, nil, false)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
