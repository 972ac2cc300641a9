package reconcile

import (
	"context"
	"fmt"

	"github.com/graphcat/graphcat/internal/graph"
)

// ExpirePreviouslyExisting removes from the target set, for each given edge
// type, any snapshot edge id that was not produced again this run. An id
// absent from the target set is left absent; the pass never resurrects and
// never writes a soft-expiration timestamp itself. Only edge types may
// expire.
func ExpirePreviouslyExisting(types []*graph.EntityType, entities Entities, existing Existing) error {
	for _, t := range types {
		if t.Kind != graph.KindEdge {
			return fmt.Errorf("cannot expire %s type %s", t.Kind, t.Label)
		}
		byID := entities.ForType(t)
		for _, edge := range existing.ForType(t) {
			id, ok := edge[graph.IDName].(string)
			if !ok {
				continue
			}
			if _, recreated := byID[id]; recreated {
				continue
			}
			delete(byID, id)
		}
	}
	return nil
}

// ExpireConnectionsForOther finds, for one vertex type, every stored vertex
// whose key is not in the authoritative surviving set, fetches its incident
// edges, folds them into the snapshot, and returns them. The returned edges
// are what a caller must drop from the store to prune vertices no longer
// reported by any upstream source.
func ExpireConnectionsForOther(ctx context.Context, fetcher Fetcher, t *graph.EntityType, keys map[string]bool, schema *graph.Schema, existing Existing) ([]graph.Entity, error) {
	if t.Kind != graph.KindVertex {
		return nil, fmt.Errorf("cannot expire connections of %s type %s", t.Kind, t.Label)
	}
	stored, err := fetcher.ConnectedVertexKeys(ctx, t.Label)
	if err != nil {
		return nil, fmt.Errorf("listing %s keys: %w", t.Label, err)
	}

	var doomedIDs []string
	for _, key := range stored {
		if keys[key] {
			continue
		}
		id, err := t.ID(graph.Entity{"key": key})
		if err != nil {
			return nil, err
		}
		doomedIDs = append(doomedIDs, id)
	}

	var doomed []graph.Entity
	for _, ids := range chunk(doomedIDs, fetchChunkVertices) {
		edges, err := fetcher.IncidentEdges(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetching incident edges: %w", err)
		}
		folded, err := intoExisting(schema, edges, existing, nil)
		if err != nil {
			return nil, err
		}
		doomed = append(doomed, folded...)
	}
	return doomed, nil
}
