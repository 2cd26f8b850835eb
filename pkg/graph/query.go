package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MaxTraversalDepth caps how far neighbor and component queries walk.
// The portal's committees produce small clusters; anything deeper is a
// runaway query, not a real question.
const MaxTraversalDepth = 5

// QueryService answers graph explorer questions against the mirror
type QueryService struct {
	client *Client
	logger ectologger.Logger
}

// NewQueryService creates a new query service
func NewQueryService(client *Client, logger ectologger.Logger) *QueryService {
	return &QueryService{
		client: client,
		logger: logger,
	}
}

// QueryResult represents the result of a graph query
type QueryResult struct {
	Nodes         []NodeResult `json:"nodes"`
	Relationships []RelResult  `json:"relationships"`
}

// NodeResult represents a node from query results
type NodeResult struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// RelResult represents a relationship from query results
type RelResult struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Neighbors returns the entities connected to a start entity within the
// given number of hops, along with the edges walked.
func (s *QueryService) Neighbors(ctx context.Context, tenantID string, ref models.EntityRef, hops int) (*QueryResult, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.Neighbors")
	defer span.End()

	hops = clampDepth(hops)

	cypher := fmt.Sprintf(`
		MATCH (start:%s {id: $id, tenant_id: $tenant_id})
		MATCH p = (start)-[*1..%d]-(neighbor)
		RETURN p
	`, kindLabel(ref.Kind), hops)

	return s.runPathQuery(ctx, tenantID, cypher, map[string]any{
		"id": ref.ID,
	})
}

// Component returns the connected component around a start entity,
// bounded by depth. The start node is included even when it has no
// edges.
func (s *QueryService) Component(ctx context.Context, tenantID string, ref models.EntityRef, depth int) (*QueryResult, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.Component")
	defer span.End()

	depth = clampDepth(depth)

	cypher := fmt.Sprintf(`
		MATCH (start:%s {id: $id, tenant_id: $tenant_id})
		MATCH p = (start)-[*0..%d]-(connected)
		RETURN p
	`, kindLabel(ref.Kind), depth)

	return s.runPathQuery(ctx, tenantID, cypher, map[string]any{
		"id": ref.ID,
	})
}

// Path returns the shortest path between two entities, if one exists
// within maxHops.
func (s *QueryService) Path(ctx context.Context, tenantID string, from models.EntityRef, to models.EntityRef, maxHops int) (*QueryResult, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.Path")
	defer span.End()

	maxHops = clampDepth(maxHops)

	cypher := fmt.Sprintf(`
		MATCH (from:%s {id: $from_id, tenant_id: $tenant_id})
		MATCH (to:%s {id: $to_id, tenant_id: $tenant_id})
		MATCH p = shortestPath((from)-[*..%d]-(to))
		RETURN p
	`, kindLabel(from.Kind), kindLabel(to.Kind), maxHops)

	return s.runPathQuery(ctx, tenantID, cypher, map[string]any{
		"from_id": from.ID,
		"to_id":   to.ID,
	})
}

// runPathQuery executes a read query whose rows contain paths and
// collects the distinct nodes and relationships they cover.
func (s *QueryService) runPathQuery(ctx context.Context, tenantID string, cypher string, params map[string]any) (*QueryResult, error) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
	})

	if params == nil {
		params = make(map[string]any)
	}
	params["tenant_id"] = tenantID

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		qr := &QueryResult{
			Nodes:         make([]NodeResult, 0),
			Relationships: make([]RelResult, 0),
		}

		seenNodes := make(map[string]bool)
		seenRels := make(map[string]bool)

		for result.Next(ctx) {
			record := result.Record()
			for _, key := range record.Keys {
				val, _ := record.Get(key)
				collectValue(val, qr, seenNodes, seenRels)
			}
		}

		return qr, nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to execute graph query")
		return nil, fmt.Errorf("failed to execute graph query: %w", err)
	}

	return result.(*QueryResult), nil
}

// collectValue folds neo4j values into the result set, deduplicating
// nodes and relationships by their mirrored IDs.
func collectValue(val any, qr *QueryResult, seenNodes, seenRels map[string]bool) {
	switch v := val.(type) {
	case neo4j.Node:
		id := fmt.Sprintf("%v", v.Props["id"])
		if !seenNodes[id] {
			seenNodes[id] = true
			qr.Nodes = append(qr.Nodes, NodeResult{
				ID:         id,
				Labels:     v.Labels,
				Properties: v.Props,
			})
		}

	case neo4j.Relationship:
		id := fmt.Sprintf("%v", v.Props["id"])
		if !seenRels[id] {
			seenRels[id] = true
			qr.Relationships = append(qr.Relationships, RelResult{
				ID:         id,
				Type:       v.Type,
				Properties: v.Props,
			})
		}

	case neo4j.Path:
		for _, node := range v.Nodes {
			collectValue(node, qr, seenNodes, seenRels)
		}
		for _, rel := range v.Relationships {
			collectValue(rel, qr, seenNodes, seenRels)
		}

	case []any:
		for _, item := range v {
			collectValue(item, qr, seenNodes, seenRels)
		}
	}
}

func clampDepth(depth int) int {
	if depth <= 0 {
		return 1
	}
	if depth > MaxTraversalDepth {
		return MaxTraversalDepth
	}
	return depth
}
