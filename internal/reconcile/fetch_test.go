package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCoerceProperties(t *testing.T) {
	schema := newTestSchema(t)

	t.Run("single takes the lone element", func(t *testing.T) {
		entity := coerceProperties(schema.Vertices.Table, map[string][]any{
			"name": {"orders"}, "is_view": {false}}, nil)
		assert.Equal(t, "orders", entity["name"])
		assert.Equal(t, false, entity["is_view"])
	})

	t.Run("set keeps the slice", func(t *testing.T) {
		entity := coerceProperties(schema.Vertices.Application, map[string][]any{
			"application_url": {"https://a", "https://b"}}, nil)
		assert.Equal(t, []any{"https://a", "https://b"}, entity["application_url"])
	})

	t.Run("undeclared properties are dropped and logged", func(t *testing.T) {
		core, logged := observer.New(zap.DebugLevel)
		entity := coerceProperties(schema.Vertices.Table, map[string][]any{
			"name": {"orders"}, "legacy_field": {"x"}}, zap.New(core))
		assert.NotContains(t, entity, "legacy_field")
		assert.Len(t, logged.FilterMessage("dropping undeclared property from fetched entity").All(), 1)
	})
}

func TestFetchTableEntities(t *testing.T) {
	schema := newTestSchema(t)
	existing := NewExisting()
	table := testTable()
	table.TableWriter = "etl-prod"

	var requested []string
	fetcher := &fakeFetcher{
		vertices: func(ids []string) ([]VertexRecord, error) {
			requested = append(requested, ids...)
			for _, id := range ids {
				if id == "Table:postgres://main.public/orders" {
					return []VertexRecord{{
						Label: "Table", ID: id,
						Properties: map[string][]any{
							"key": {"postgres://main.public/orders"}, "name": {"orders"}},
					}}, nil
				}
			}
			return nil, nil
		},
		outEdges: func(ids, labels []string) ([]EdgeRecord, error) {
			return []EdgeRecord{{
				Label: "COLUMN", ID: "COLUMN:x:Table:postgres://main.public/orders->Column:c",
				From: "Table:postgres://main.public/orders", To: "Column:c",
				Properties: map[string][]any{"created": {"2023-01-01T00:00:00"}},
			}}, nil
		},
	}

	require.NoError(t, FetchTableEntities(context.Background(), fetcher, schema, []TableRecord{table}, existing, zap.NewNop()))

	t.Run("requests the chain, columns and writer candidates", func(t *testing.T) {
		for _, id := range []string{
			"Database:database://postgres",
			"Cluster:postgres://main",
			"Schema:postgres://main.public",
			"Table:postgres://main.public/orders",
			"Column:postgres://main.public/orders/id",
			"Application:etl-prod",
			"Application:app-etl-prod",
			"Application:etl",
			"Application:app-etl",
			"User:etl-prod",
		} {
			assert.Contains(t, requested, id)
		}
	})

	t.Run("folds fetched vertices and edges", func(t *testing.T) {
		assert.Len(t, existing.ForType(schema.Vertices.Table), 1)
		assert.Len(t, existing.ForType(schema.Edges.Column), 1)
	})
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk[int](nil, 3))
	assert.Equal(t, [][]int{{1, 2, 3}}, chunk([]int{1, 2, 3}, 3))
	assert.Equal(t, [][]int{{1, 2, 3}, {4}}, chunk([]int{1, 2, 3, 4}, 3))
}

func TestIntoExistingUnknownLabel(t *testing.T) {
	schema := newTestSchema(t)
	existing := NewExisting()
	core, logged := observer.New(zap.InfoLevel)

	folded, err := intoExistingVertices(schema, []VertexRecord{{
		Label: "Mystery", ID: "Mystery:1"}}, existing, zap.New(core))
	require.NoError(t, err)
	assert.Empty(t, folded)
	assert.Len(t, logged.FilterMessage("dropping fetched entity with unknown label").All(), 1)
}
