package relationship

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// EngineConfig contains configuration for the relationship engine
type EngineConfig struct {
	FetchWorkers int // Concurrent node lookups per graph fetch (default: 4)
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		FetchWorkers: 4,
	}
}

// Engine resolves relationship contexts on demand. Contexts are
// recomputed for every request and never cached; the entity rows stay
// the system of record.
type Engine struct {
	store      Store
	fetcher    *Fetcher
	builder    *Builder
	propagator *Propagator
	logger     ectologger.Logger
}

// NewEngine creates a new relationship engine
func NewEngine(store Store, logger ectologger.Logger, config EngineConfig) *Engine {
	if config.FetchWorkers <= 0 {
		config.FetchWorkers = DefaultConfig().FetchWorkers
	}
	return &Engine{
		store:      store,
		fetcher:    NewFetcher(store, logger, config.FetchWorkers),
		builder:    NewBuilder(store, logger),
		propagator: NewPropagator(store, logger),
		logger:     logger,
	}
}

// FetchGraph loads the single-hop neighborhood of an entity
func (e *Engine) FetchGraph(ctx context.Context, tenantID string, ref models.EntityRef) (*models.RelationshipGraph, error) {
	return e.fetcher.FetchGraph(ctx, tenantID, ref)
}

// ContextFor builds the relationship context for an entity: fetch the
// graph, resolve the dominant source, map its values.
func (e *Engine) ContextFor(ctx context.Context, tenantID string, ref models.EntityRef) (*models.RelationshipContext, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Engine.ContextFor")
	defer span.End()

	start := time.Now()

	graph, err := e.fetcher.FetchGraph(ctx, tenantID, ref)
	if err != nil {
		return nil, err
	}

	sel := ResolveSource(graph)
	rc := e.builder.BuildContext(ctx, tenantID, sel, graph)

	metrics.RecordContextBuild(tenantID, string(rc.ValueSource), time.Since(start).Seconds())
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    tenantID,
		"entity":       ref.String(),
		"value_source": string(rc.ValueSource),
		"linked":       len(rc.LinkedEntityIDs),
	}).Debug("Built relationship context")

	return &rc, nil
}

// Propagate builds the context for an entity and pushes its values
// into every linked entity. Best-effort: per-entity failures land in
// the results, not in the returned error.
func (e *Engine) Propagate(ctx context.Context, tenantID string, ref models.EntityRef) (*models.PropagationResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Engine.Propagate")
	defer span.End()

	rc, err := e.ContextFor(ctx, tenantID, ref)
	if err != nil {
		return nil, err
	}

	return e.PropagateContext(ctx, tenantID, rc), nil
}

// PropagateContext pushes an already-built context into its linked
// entities. Used when the caller edited the autofilled values before
// confirming the propagation.
func (e *Engine) PropagateContext(ctx context.Context, tenantID string, rc *models.RelationshipContext) *models.PropagationResponse {
	ctx, span := tracing.StartSpan(ctx, "relationship.Engine.PropagateContext")
	defer span.End()

	results := e.propagator.Propagate(ctx, tenantID, rc)
	return &models.PropagationResponse{
		ValueSource: rc.ValueSource,
		Results:     results,
	}
}
