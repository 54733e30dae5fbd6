package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/auth"
	fsbackend "github.com/brn2/gograph/internal/backend/fs"
	"github.com/brn2/gograph/internal/cache"
	"github.com/brn2/gograph/internal/gerrors"
	"github.com/brn2/gograph/internal/model"
	"github.com/brn2/gograph/internal/query"
	"github.com/brn2/gograph/internal/shardplacer"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	be, err := fsbackend.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	fabric := cache.New(cache.Config{TTL: time.Minute, MaxSize: 1000}, zap.NewNop())
	placer := shardplacer.New(shardplacer.DefaultShards, shardplacer.DefaultLevels)
	return New(be, fabric, placer, WithDefaultAuth(auth.AdminContext()))
}

func TestCreateNodeAssignsIDAndVersionOne(t *testing.T) {
	e := newTestEngine(t)
	n, err := e.CreateNode(context.Background(), "person", map[string]model.Value{"name": model.String("ada")}, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, 1, n.Version)
}

func TestGetNodeRoundTrips(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	created, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	fetched, err := e.GetNode(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "person", fetched.Type)
}

func TestGetNodeMissingReturnsNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.GetNode(context.Background(), "does-not-exist", nil)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindNodeNotFound))
}

func TestUpdateNodeWithCorrectVersionIncrementsByOne(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateNode(ctx, "person", map[string]model.Value{"name": model.String("ada")}, nil, nil)
	require.NoError(t, err)

	updated, err := e.UpdateNode(ctx, n.ID, map[string]interface{}{
		"properties": map[string]model.Value{"name": model.String("grace")},
	}, n.Version, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, model.String("grace"), updated.Properties["name"])
}

func TestUpdateNodeWithStaleVersionFailsAndLeavesStateUnchanged(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateNode(ctx, "person", map[string]model.Value{"name": model.String("ada")}, nil, nil)
	require.NoError(t, err)

	_, err = e.UpdateNode(ctx, n.ID, map[string]interface{}{
		"properties": map[string]model.Value{"name": model.String("grace")},
	}, n.Version+1, nil)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindConcurrentModification))

	stillOriginal, err := e.GetNode(ctx, n.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stillOriginal.Version)
	assert.Equal(t, model.String("ada"), stillOriginal.Properties["name"])
}

func TestDeleteNodeThenGetIsNotFoundAndDropsFromQuery(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, e.DeleteNode(ctx, n.ID, nil))

	_, err = e.GetNode(ctx, n.ID, nil)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindNodeNotFound))

	page, err := e.QueryNodes(ctx, "person", nil)
	require.NoError(t, err)
	for _, got := range page.Nodes {
		assert.NotEqual(t, n.ID, got.ID)
	}
}

func TestQueryNodesAdvancedFiltersAndPaginates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	for _, name := range []string{"ada", "grace", "alan"} {
		_, err := e.CreateNode(ctx, "person", map[string]model.Value{"name": model.String(name)}, nil, nil)
		require.NoError(t, err)
	}

	spec := query.Spec{
		Filter: &query.Filter{Field: "type", Operator: query.OpEq, Value: model.String("person")},
		Sort:   []query.SortKey{{Field: "properties.name"}},
		Limit:  2,
	}
	result, err := e.QueryNodesAdvanced(ctx, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Page.Total)
	assert.True(t, result.Page.HasMore)
	assert.Len(t, result.Page.Nodes, 2)
	assert.Equal(t, "ada", result.Page.Nodes[0].Properties["name"].S)
}

func TestCreateRelationshipThenTraverseBothDirections(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	b, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	_, err = e.CreateRelationship(ctx, a.ID, b.ID, "FOLLOWS", nil, nil, nil)
	require.NoError(t, err)

	out, err := e.QueryRelatedNodes(ctx, a.ID, "FOLLOWS", model.DirectionOut, false, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ID)

	in, err := e.QueryRelatedNodes(ctx, b.ID, "FOLLOWS", model.DirectionIn, false, nil)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, a.ID, in[0].ID)
}

func TestQueryRelatedNodesSkipCacheMatchesNormalReadWhenCacheIsCurrent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	b, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, a.ID, b.ID, "FOLLOWS", nil, nil, nil)
	require.NoError(t, err)

	cached, err := e.QueryRelatedNodes(ctx, a.ID, "FOLLOWS", model.DirectionOut, false, nil)
	require.NoError(t, err)

	cold, err := e.QueryRelatedNodes(ctx, a.ID, "FOLLOWS", model.DirectionOut, true, nil)
	require.NoError(t, err)
	require.Len(t, cold, 1)
	assert.Equal(t, cached[0].ID, cold[0].ID, "skipCache still reads the true backend state, just without the memo shortcut")
}

func TestCreateDuplicateRelationshipFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	b, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	_, err = e.CreateRelationship(ctx, a.ID, b.ID, "FOLLOWS", nil, nil, nil)
	require.NoError(t, err)

	_, err = e.CreateRelationship(ctx, a.ID, b.ID, "FOLLOWS", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindDuplicateRelationship))
}

func TestCreateRelationshipWithMissingEndpointFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	_, err = e.CreateRelationship(ctx, a.ID, "no-such-node", "FOLLOWS", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindNodeNotFound))
}

func TestDeleteRelationshipThenTraversalIsEmpty(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	b, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, a.ID, b.ID, "FOLLOWS", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, e.DeleteRelationship(ctx, a.ID, b.ID, "FOLLOWS", nil))

	out, err := e.QueryRelatedNodes(ctx, a.ID, "FOLLOWS", model.DirectionOut, false, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNonAdminCallerOnlySeesPermittedNodes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	admin := auth.AdminContext()
	public, err := e.CreateNode(ctx, "doc", nil, nil, &admin)
	require.NoError(t, err)
	secret, err := e.CreateNode(ctx, "doc", nil, []string{"team-a"}, &admin)
	require.NoError(t, err)

	teamB := auth.NewContext("team-b")
	_, err = e.GetNode(ctx, public.ID, &teamB)
	assert.NoError(t, err)

	_, err = e.GetNode(ctx, secret.ID, &teamB)
	require.Error(t, err)
	assert.True(t, gerrors.Is(err, gerrors.KindPermissionDenied))
}

func TestGetNodeTypeFromID(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)

	typ, err := e.GetNodeTypeFromID(ctx, n.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "person", typ)
}
