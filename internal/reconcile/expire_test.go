package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphcat/graphcat/internal/graph"
)

func seedEdge(t *testing.T, typ *graph.EntityType, existing Existing, from, to string, created time.Time) graph.Entity {
	t.Helper()
	edge, err := typ.Create(graph.Entity{
		graph.FromName: from, graph.ToName: to, "created": created})
	require.NoError(t, err)
	key, err := KeyFor(typ, edge)
	require.NoError(t, err)
	existing.ForType(typ)[key] = edge
	return edge
}

func TestExpirePreviouslyExisting(t *testing.T) {
	schema := newTestSchema(t)
	typ := schema.Edges.Column
	now := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("recreated edges survive", func(t *testing.T) {
		entities := NewEntities()
		existing := NewExisting()
		edge := seedEdge(t, typ, existing, "Table:t", "Column:c", now)
		id := edge[graph.IDName].(string)
		entities.ForType(typ)[id] = edge

		require.NoError(t, ExpirePreviouslyExisting([]*graph.EntityType{typ}, entities, existing))
		_, ok := entities.Get(typ, id)
		assert.True(t, ok)
	})

	t.Run("stale edge absent from the target set stays absent", func(t *testing.T) {
		// the removal contract only touches ids actually present, so a
		// stale snapshot edge never re-created this run is a no-op here
		// and must be pruned by a separate store-side pass
		entities := NewEntities()
		existing := NewExisting()
		seedEdge(t, typ, existing, "Table:t", "Column:gone", now)

		require.NoError(t, ExpirePreviouslyExisting([]*graph.EntityType{typ}, entities, existing))
		assert.Empty(t, entities.ForType(typ))
		// the snapshot itself is untouched
		assert.Len(t, existing.ForType(typ), 1)
	})

	t.Run("vertex types are rejected", func(t *testing.T) {
		err := ExpirePreviouslyExisting([]*graph.EntityType{schema.Vertices.Table}, NewEntities(), NewExisting())
		assert.ErrorContains(t, err, "cannot expire")
	})
}

type fakeFetcher struct {
	vertices            func(ids []string) ([]VertexRecord, error)
	outEdges            func(ids, labels []string) ([]EdgeRecord, error)
	connectedVertexKeys func(label string) ([]string, error)
	incidentEdges       func(ids []string) ([]EdgeRecord, error)
}

func (f *fakeFetcher) Vertices(_ context.Context, ids []string) ([]VertexRecord, error) {
	if f.vertices == nil {
		return nil, nil
	}
	return f.vertices(ids)
}

func (f *fakeFetcher) OutEdges(_ context.Context, ids, labels []string) ([]EdgeRecord, error) {
	if f.outEdges == nil {
		return nil, nil
	}
	return f.outEdges(ids, labels)
}

func (f *fakeFetcher) ConnectedVertexKeys(_ context.Context, label string) ([]string, error) {
	return f.connectedVertexKeys(label)
}

func (f *fakeFetcher) IncidentEdges(_ context.Context, ids []string) ([]EdgeRecord, error) {
	return f.incidentEdges(ids)
}

func TestExpireConnectionsForOther(t *testing.T) {
	schema := newTestSchema(t)
	existing := NewExisting()

	fetcher := &fakeFetcher{
		connectedVertexKeys: func(label string) ([]string, error) {
			assert.Equal(t, "Table", label)
			return []string{"keep", "drop"}, nil
		},
		incidentEdges: func(ids []string) ([]EdgeRecord, error) {
			require.Equal(t, []string{"Table:drop"}, ids)
			return []EdgeRecord{{
				Label: "COLUMN", ID: "COLUMN:x:Table:drop->Column:c",
				From: "Table:drop", To: "Column:c",
				Properties: map[string][]any{"created": {"2023-01-01T00:00:00"}},
			}}, nil
		},
	}

	doomed, err := ExpireConnectionsForOther(context.Background(), fetcher, schema.Vertices.Table,
		map[string]bool{"keep": true}, schema, existing)
	require.NoError(t, err)
	require.Len(t, doomed, 1)
	assert.Equal(t, "COLUMN:x:Table:drop->Column:c", doomed[0][graph.IDName])
	// the doomed edges are folded into the snapshot too
	assert.Len(t, existing.ForType(schema.Edges.Column), 1)
}
