package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	schema, err := NewSchema(NewShardGuard(""))
	require.NoError(t, err)

	t.Run("labels are unique and resolvable", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, typ := range schema.Types() {
			assert.False(t, seen[typ.Label], typ.Label)
			seen[typ.Label] = true

			got, ok := schema.ByLabel(typ.Label)
			require.True(t, ok)
			assert.Same(t, typ, got)
		}
	})

	t.Run("every edge type is expirable", func(t *testing.T) {
		assert.Equal(t, len(schema.EdgeTypeList()), len(schema.ExpirableEdges()))
	})

	t.Run("read edges are keyed by day", func(t *testing.T) {
		assert.Equal(t, "{~label}:{date}:{~from}->{~to}", schema.Edges.Read.IDFormat())
	})

	t.Run("tag type defaults", func(t *testing.T) {
		p, ok := schema.Vertices.Tag.Property("tag_type")
		require.True(t, ok)
		assert.Equal(t, "default", p.Default)
	})

	t.Run("application urls are a set", func(t *testing.T) {
		p, ok := schema.Vertices.Application.Property("application_url")
		require.True(t, ok)
		assert.Equal(t, CardinalitySet, p.Cardinality)
	})

	t.Run("kind lists are sorted and disjoint", func(t *testing.T) {
		vertices := schema.VertexTypeList()
		edges := schema.EdgeTypeList()
		assert.Equal(t, len(schema.Types()), len(vertices)+len(edges))
		for i := 1; i < len(vertices); i++ {
			assert.Less(t, vertices[i-1].Label, vertices[i].Label)
		}
		for _, typ := range edges {
			assert.Equal(t, KindEdge, typ.Kind)
		}
	})
}

func TestNewSchemaSharded(t *testing.T) {
	guard := NewShardGuard("s1")
	schema, err := NewSchema(guard)
	require.NoError(t, err)

	assert.Equal(t, "s1", schema.Shard())
	assert.ErrorContains(t, guard.Set("s2"), "already in use")

	t.Run("vertex ids are shard-prefixed", func(t *testing.T) {
		entity, err := schema.Vertices.Column.Create(Entity{"key": "k", "name": "n"})
		require.NoError(t, err)
		assert.Equal(t, "s1:Column:k", entity[IDName])
		assert.Equal(t, "s1", entity["shard"])
	})

	t.Run("edge ids are shard-free", func(t *testing.T) {
		_, ok := schema.Edges.Column.Property("shard")
		assert.False(t, ok)
	})
}
