// Package graph is the module's sole public import path: a thin
// orchestration layer, the Engine Facade, that validates inputs,
// consults the Permission Gate, assigns ids and versions, and
// delegates to the Storage Backend and Cache Fabric underneath. Every
// other package in this module lives under internal/ and is reached
// only through this facade, exposing a slim public surface over a
// deep internal domain layer.
package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/auth"
	"github.com/brn2/gograph/internal/backend"
	"github.com/brn2/gograph/internal/cache"
	"github.com/brn2/gograph/internal/concurrency"
	"github.com/brn2/gograph/internal/gerrors"
	"github.com/brn2/gograph/internal/model"
	"github.com/brn2/gograph/internal/query"
	"github.com/brn2/gograph/internal/shardplacer"
	"github.com/brn2/gograph/internal/traversal"
	"github.com/brn2/gograph/internal/validate"
)

// Engine is the public handle to one graph store instance.
type Engine struct {
	backend   backend.Backend
	fabric    *cache.Fabric
	placer    *shardplacer.Placer
	validator *validate.Validator
	executor  *query.Executor
	traverser *traversal.Engine

	logger      *zap.Logger
	tracer      trace.Tracer
	defaultAuth auth.Context
}

// New builds an Engine over be, with fabric managing the in-memory
// cache state and placer computing shard paths. Apply opts for a
// logger, tracer, or initial default auth context.
func New(be backend.Backend, fabric *cache.Fabric, placer *shardplacer.Placer, opts ...Option) *Engine {
	e := &Engine{
		backend:   be,
		fabric:    fabric,
		placer:    placer,
		validator: validate.New(),
		executor:  query.New(),
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("gograph"),
	}
	for _, opt := range opts {
		opt(e)
	}
	// Built after opts so a caller-supplied WithLogger reaches the
	// traversal engine's cold-scan warnings instead of the nop default.
	e.traverser = traversal.New(fabric, be, placer, e.logger)
	return e
}

// SetDefaultAuth sets the auth.Context used by operations called
// without an explicit one.
func (e *Engine) SetDefaultAuth(ctx auth.Context) {
	e.defaultAuth = ctx
}

func (e *Engine) resolveAuth(authCtx *auth.Context) auth.Context {
	if authCtx != nil {
		return *authCtx
	}
	return e.defaultAuth
}

func (e *Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "graph."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateNode validates, permission-checks, assigns a fresh id and
// version 1, writes through the backend, and populates the cache.
func (e *Engine) CreateNode(ctx context.Context, typ string, properties map[string]model.Value, permissions []string, authCtx *auth.Context) (*model.Node, error) {
	ctx, span := e.startSpan(ctx, "CreateNode", attribute.String("node.type", typ))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	n := &model.Node{Type: typ, Properties: properties, Permissions: permissions, Version: 1}
	if err := e.validator.ValidateNodeForCreate(n); err != nil {
		retErr = err
		return nil, err
	}

	ac := e.resolveAuth(authCtx)
	if !ac.CanCreateNode(permissions) {
		retErr = gerrors.PermissionDenied(permissions, ac.Permissions, "node:"+typ)
		return nil, retErr
	}

	n.ID = uuid.NewString()
	if err := e.putNode(ctx, n); err != nil {
		retErr = err
		return nil, err
	}
	e.fabric.CacheNode(n)
	return n.Clone(), nil
}

// GetNode resolves a node cache-first, falling through to the backend
// on a miss, and applies the permission filter after the existence
// check (per the Permission Gate's documented ordering).
func (e *Engine) GetNode(ctx context.Context, id string, authCtx *auth.Context) (*model.Node, error) {
	ctx, span := e.startSpan(ctx, "GetNode", attribute.String("node.id", id))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	n, err := e.traverser.ResolveNode(ctx, id)
	if err != nil {
		retErr = err
		return nil, err
	}

	ac := e.resolveAuth(authCtx)
	if !ac.CanSeeNode(n) {
		retErr = gerrors.PermissionDenied(nil, ac.Permissions, "node:"+id)
		return nil, retErr
	}
	return n, nil
}

// UpdateNode applies updates (optionally keyed "properties" and
// "permissions") to an existing node, enforcing the optimistic version
// check when expectedVersion > 0.
func (e *Engine) UpdateNode(ctx context.Context, id string, updates map[string]interface{}, expectedVersion int, authCtx *auth.Context) (*model.Node, error) {
	ctx, span := e.startSpan(ctx, "UpdateNode", attribute.String("node.id", id))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	if err := e.validator.ValidateNodeForUpdate(updates); err != nil {
		retErr = err
		return nil, err
	}

	n, err := e.traverser.ResolveNode(ctx, id)
	if err != nil {
		retErr = err
		return nil, err
	}

	ac := e.resolveAuth(authCtx)
	if !ac.CanSeeNode(n) {
		retErr = gerrors.PermissionDenied(nil, ac.Permissions, "node:"+id)
		return nil, retErr
	}

	if err := concurrency.CheckVersion(id, n.Version, expectedVersion); err != nil {
		retErr = err
		return nil, err
	}

	if props, ok := updates["properties"].(map[string]model.Value); ok {
		n.Properties = props
	}
	if perms, ok := updates["permissions"].([]string); ok {
		n.Permissions = perms
	}
	n.Version = concurrency.NextVersion(n.Version)

	if err := e.putNode(ctx, n); err != nil {
		retErr = err
		return nil, err
	}
	e.fabric.CacheNode(n)
	return n.Clone(), nil
}

// DeleteNode removes a node's backend bytes and every cache derivation
// of it. Relationships referencing the node are not cascaded (an
// explicit, documented choice): a later traversal that dereferences the
// dangling endpoint treats it as not-found and drops it from results.
func (e *Engine) DeleteNode(ctx context.Context, id string, authCtx *auth.Context) error {
	ctx, span := e.startSpan(ctx, "DeleteNode", attribute.String("node.id", id))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	n, err := e.traverser.ResolveNode(ctx, id)
	if err != nil {
		retErr = err
		return err
	}

	ac := e.resolveAuth(authCtx)
	if !ac.CanSeeNode(n) {
		retErr = gerrors.PermissionDenied(nil, ac.Permissions, "node:"+id)
		return retErr
	}

	key := backend.NodeKey(n.Type, e.placer.Path(id), id)
	if err := e.backend.Delete(ctx, key); err != nil {
		retErr = gerrors.BackendIO("delete-node:"+key, err)
		return retErr
	}
	e.fabric.RemoveNode(id)
	return nil
}

// QueryNodes is the basic query operation: every visible node of typ,
// under the default query limit.
func (e *Engine) QueryNodes(ctx context.Context, typ string, authCtx *auth.Context) (query.Page, error) {
	ctx, span := e.startSpan(ctx, "QueryNodes", attribute.String("node.type", typ))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	spec := query.Spec{Filter: &query.Filter{Field: "type", Operator: query.OpEq, Value: model.String(typ)}}
	result, err := e.QueryNodesAdvanced(ctx, spec, authCtx)
	if err != nil {
		retErr = err
		return query.Page{}, err
	}
	return result.Page, nil
}

// QueryNodesAdvanced runs a full filter/sort/paginate/aggregate Spec
// through the Query Executor, applying the caller's permission filter
// after structural filtering.
func (e *Engine) QueryNodesAdvanced(ctx context.Context, spec query.Spec, authCtx *auth.Context) (query.Result, error) {
	ctx, span := e.startSpan(ctx, "QueryNodesAdvanced")
	var retErr error
	defer func() { endSpan(span, retErr) }()

	ac := e.resolveAuth(authCtx)
	visible := query.Visibility(func(n *model.Node) bool { return ac.CanSeeNode(n) })

	result, err := e.executor.Execute(&nodeLoader{engine: e, ctx: ctx}, spec, visible)
	if err != nil {
		retErr = err
		return query.Result{}, err
	}
	return result, nil
}

// CreateRelationship validates and permission-checks both endpoints,
// fails on a duplicate (source, target, type) triple, and writes
// through the backend and cache. An invisible or missing endpoint is
// reported as not-found, not permission-denied, to avoid leaking
// existence of entities the caller cannot see.
func (e *Engine) CreateRelationship(ctx context.Context, source, target, typ string, properties map[string]model.Value, permissions []string, authCtx *auth.Context) (*model.Relationship, error) {
	ctx, span := e.startSpan(ctx, "CreateRelationship",
		attribute.String("rel.source", source), attribute.String("rel.target", target), attribute.String("rel.type", typ))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	r := &model.Relationship{Source: source, Target: target, Type: typ, Properties: properties, Permissions: permissions, Version: 1}
	if err := e.validator.ValidateRelationshipForCreate(r); err != nil {
		retErr = err
		return nil, err
	}

	ac := e.resolveAuth(authCtx)
	if err := e.checkEndpointVisible(ctx, source, ac); err != nil {
		retErr = err
		return nil, err
	}
	if err := e.checkEndpointVisible(ctx, target, ac); err != nil {
		retErr = err
		return nil, err
	}
	if !ac.CanCreateRelationship(permissions) {
		retErr = gerrors.PermissionDenied(permissions, ac.Permissions, "relationship:"+typ)
		return nil, retErr
	}

	if _, exists := e.fabric.FetchRelationship(source, target, typ); exists {
		retErr = gerrors.DuplicateRelationship(source, target, typ)
		return nil, retErr
	}
	existing, err := e.getRelationshipFromBackend(ctx, r)
	if err != nil {
		retErr = err
		return nil, err
	}
	if existing != nil {
		retErr = gerrors.DuplicateRelationship(source, target, typ)
		return nil, retErr
	}

	if err := e.putRelationship(ctx, r); err != nil {
		retErr = err
		return nil, err
	}
	e.fabric.CacheRelationship(r)
	return r.Clone(), nil
}

// checkEndpointVisible reports not-found, rather than permission-
// denied, whenever the node is missing or invisible to ac.
func (e *Engine) checkEndpointVisible(ctx context.Context, id string, ac auth.Context) error {
	n, err := e.traverser.ResolveNode(ctx, id)
	if err != nil {
		return err
	}
	if !ac.CanSeeNode(n) {
		return gerrors.NodeNotFound(id)
	}
	return nil
}

// UpdateRelationship applies property/permission updates to an
// existing relationship, enforcing the optimistic version check.
func (e *Engine) UpdateRelationship(ctx context.Context, source, target, typ string, updates map[string]interface{}, expectedVersion int, authCtx *auth.Context) (*model.Relationship, error) {
	ctx, span := e.startSpan(ctx, "UpdateRelationship",
		attribute.String("rel.source", source), attribute.String("rel.target", target), attribute.String("rel.type", typ))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	if err := e.validator.ValidateRelationshipForUpdate(updates); err != nil {
		retErr = err
		return nil, err
	}

	r, err := e.resolveRelationship(ctx, source, target, typ)
	if err != nil {
		retErr = err
		return nil, err
	}

	ac := e.resolveAuth(authCtx)
	if !ac.CanSeeRelationship(r) {
		retErr = gerrors.PermissionDenied(nil, ac.Permissions, "relationship:"+typ)
		return nil, retErr
	}
	if err := concurrency.CheckVersion(r.Key(), r.Version, expectedVersion); err != nil {
		retErr = err
		return nil, err
	}

	if props, ok := updates["properties"].(map[string]model.Value); ok {
		r.Properties = props
	}
	if perms, ok := updates["permissions"].([]string); ok {
		r.Permissions = perms
	}
	r.Version = concurrency.NextVersion(r.Version)

	if err := e.putRelationship(ctx, r); err != nil {
		retErr = err
		return nil, err
	}
	e.fabric.CacheRelationship(r)
	return r.Clone(), nil
}

// DeleteRelationship removes a relationship's backend bytes and both
// adjacency-map entries for it.
func (e *Engine) DeleteRelationship(ctx context.Context, source, target, typ string, authCtx *auth.Context) error {
	ctx, span := e.startSpan(ctx, "DeleteRelationship",
		attribute.String("rel.source", source), attribute.String("rel.target", target), attribute.String("rel.type", typ))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	r, err := e.resolveRelationship(ctx, source, target, typ)
	if err != nil {
		retErr = err
		return err
	}

	ac := e.resolveAuth(authCtx)
	if !ac.CanSeeRelationship(r) {
		retErr = gerrors.PermissionDenied(nil, ac.Permissions, "relationship:"+typ)
		return retErr
	}

	key := backend.RelationshipKey(typ, e.placer.RelationshipPath(source, target), source, target)
	if err := e.backend.Delete(ctx, key); err != nil {
		retErr = gerrors.BackendIO("delete-relationship:"+key, err)
		return retErr
	}
	e.fabric.RemoveRelationship(source, target, typ)
	return nil
}

// QueryRelatedNodes runs the Traversal Engine from source in the given
// direction, permission-filtering the result with ac. skipCache forces
// the cold path, bypassing the traversal memo and adjacency lists and
// reading the id set straight from the Storage Backend.
func (e *Engine) QueryRelatedNodes(ctx context.Context, source, relType string, dir model.Direction, skipCache bool, authCtx *auth.Context) ([]*model.Node, error) {
	ctx, span := e.startSpan(ctx, "QueryRelatedNodes",
		attribute.String("rel.source", source), attribute.String("rel.type", relType), attribute.String("rel.direction", string(dir)),
		attribute.Bool("rel.skip_cache", skipCache))
	var retErr error
	defer func() { endSpan(span, retErr) }()

	ac := e.resolveAuth(authCtx)
	visible := traversal.Visibility(func(n *model.Node) bool { return ac.CanSeeNode(n) })
	nodes, err := e.traverser.Related(ctx, source, relType, dir, visible, skipCache)
	if err != nil {
		retErr = err
		return nil, err
	}
	return nodes, nil
}

// Batch runs fn with the Cache Fabric in batch mode: every cache
// mutation fn triggers is queued rather than applied immediately, so
// concurrent readers see either the pre-batch or the fully-applied
// post-batch state, never a partial one. The queue is committed if fn
// returns nil, discarded otherwise.
func (e *Engine) Batch(fn func() error) error {
	e.fabric.BeginBatch()
	if err := fn(); err != nil {
		e.fabric.Discard()
		return err
	}
	e.fabric.Commit()
	return nil
}

// GetNodeTypeFromID resolves a node's type tag from its id alone.
func (e *Engine) GetNodeTypeFromID(ctx context.Context, id string, authCtx *auth.Context) (string, error) {
	n, err := e.GetNode(ctx, id, authCtx)
	if err != nil {
		return "", err
	}
	return n.Type, nil
}

func (e *Engine) putNode(ctx context.Context, n *model.Node) error {
	data, err := json.Marshal(n)
	if err != nil {
		return gerrors.BackendIO("encode-node:"+n.ID, err)
	}
	key := backend.NodeKey(n.Type, e.placer.Path(n.ID), n.ID)
	if err := e.backend.Put(ctx, key, data); err != nil {
		return gerrors.BackendIO("put-node:"+key, err)
	}
	return nil
}

func (e *Engine) putRelationship(ctx context.Context, r *model.Relationship) error {
	data, err := json.Marshal(r)
	if err != nil {
		return gerrors.BackendIO(fmt.Sprintf("encode-relationship:%s", r.Key()), err)
	}
	key := backend.RelationshipKey(r.Type, e.placer.RelationshipPath(r.Source, r.Target), r.Source, r.Target)
	if err := e.backend.Put(ctx, key, data); err != nil {
		return gerrors.BackendIO("put-relationship:"+key, err)
	}
	return nil
}

func (e *Engine) resolveRelationship(ctx context.Context, source, target, typ string) (*model.Relationship, error) {
	if r, hit := e.fabric.FetchRelationship(source, target, typ); hit {
		return r, nil
	}
	r, err := e.getRelationshipFromBackend(ctx, &model.Relationship{Source: source, Target: target, Type: typ})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, gerrors.RelationshipNotFound(source, target, typ)
	}
	e.fabric.CacheRelationship(r)
	return r, nil
}

func (e *Engine) getRelationshipFromBackend(ctx context.Context, r *model.Relationship) (*model.Relationship, error) {
	key := backend.RelationshipKey(r.Type, e.placer.RelationshipPath(r.Source, r.Target), r.Source, r.Target)
	data, err := e.backend.Get(ctx, key)
	if err != nil {
		if err == backend.ErrNotFound {
			return nil, nil
		}
		return nil, gerrors.BackendIO("get-relationship:"+key, err)
	}
	var rel model.Relationship
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, gerrors.BackendIO("decode-relationship:"+key, err)
	}
	return &rel, nil
}
