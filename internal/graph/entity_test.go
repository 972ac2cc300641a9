package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVertexType(t *testing.T) {
	t.Run("gains the magic properties", func(t *testing.T) {
		typ, err := NewVertexType(VertexSpec{Label: "Column",
			Properties: []Property{{Name: "name", Type: TypeString}}}, "")
		require.NoError(t, err)

		for _, name := range []string{IDName, LabelName, "key", "name"} {
			_, ok := typ.Property(name)
			assert.True(t, ok, name)
		}
		assert.Equal(t, DefaultVertexIDFormat, typ.IDFormat())
	})

	t.Run("id format parameters must be properties", func(t *testing.T) {
		_, err := NewVertexType(VertexSpec{Label: "Bad", IDFormat: "{label}:bar"}, "")
		assert.ErrorContains(t, err, `parameter "label" not found`)
	})

	t.Run("duplicate property definitions conflict", func(t *testing.T) {
		_, err := NewVertexType(VertexSpec{Label: "Bad", Properties: []Property{
			{Name: "name", Type: TypeString},
			{Name: "name", Type: TypeInt},
		}}, "")
		assert.ErrorContains(t, err, "declared twice")
	})

	t.Run("shard injection", func(t *testing.T) {
		typ, err := NewVertexType(VertexSpec{Label: "Column"}, "s1")
		require.NoError(t, err)

		assert.Equal(t, "{shard}:{~label}:{key}", typ.IDFormat())
		_, ok := typ.Property("shard")
		assert.True(t, ok)

		entity, err := typ.Create(Entity{"key": "k"})
		require.NoError(t, err)
		assert.Equal(t, "s1:Column:k", entity[IDName])
		assert.Equal(t, "s1", entity["shard"])
	})

	t.Run("shard-aware formats are not double-prefixed", func(t *testing.T) {
		typ, err := NewVertexType(VertexSpec{Label: "Odd", IDFormat: "{~label}:{shard}:{key}"}, "s1")
		require.NoError(t, err)
		assert.Equal(t, "{~label}:{shard}:{key}", typ.IDFormat())
	})
}

func TestNewEdgeType(t *testing.T) {
	t.Run("expirable edges gain expired and a created-keyed id", func(t *testing.T) {
		typ, err := NewEdgeType(EdgeSpec{Label: "OWNER", Expirable: true})
		require.NoError(t, err)
		_, ok := typ.Property("expired")
		assert.True(t, ok)
		assert.Equal(t, DefaultExpirableEdgeIDFormat, typ.IDFormat())
	})

	t.Run("plain edges", func(t *testing.T) {
		typ, err := NewEdgeType(EdgeSpec{Label: "LINK"})
		require.NoError(t, err)
		_, ok := typ.Property("expired")
		assert.False(t, ok)
		assert.Equal(t, DefaultEdgeIDFormat, typ.IDFormat())
	})
}

func TestEntityTypeCreate(t *testing.T) {
	typ, err := NewVertexType(VertexSpec{Label: "Column", Properties: []Property{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "sort_order", Type: TypeInt},
		{Name: "tag_type", Type: TypeString, Default: "default"},
	}}, "")
	require.NoError(t, err)

	t.Run("synthesizes id and label", func(t *testing.T) {
		entity, err := typ.Create(Entity{"key": "k", "name": "n"})
		require.NoError(t, err)
		assert.Equal(t, "Column:k", entity[IDName])
		assert.Equal(t, "Column", entity[LabelName])
	})

	t.Run("fills property defaults", func(t *testing.T) {
		entity, err := typ.Create(Entity{"key": "k", "name": "n"})
		require.NoError(t, err)
		assert.Equal(t, "default", entity["tag_type"])
	})

	t.Run("explicit values beat defaults", func(t *testing.T) {
		entity, err := typ.Create(Entity{"key": "k", "name": "n", "tag_type": "badge"})
		require.NoError(t, err)
		assert.Equal(t, "badge", entity["tag_type"])
	})

	t.Run("nil values are dropped", func(t *testing.T) {
		entity, err := typ.Create(Entity{"key": "k", "name": "n", "sort_order": nil})
		require.NoError(t, err)
		_, ok := entity["sort_order"]
		assert.False(t, ok)
	})

	t.Run("unknown properties fail", func(t *testing.T) {
		_, err := typ.Create(Entity{"key": "k", "name": "n", "mystery": 1})
		assert.ErrorContains(t, err, "unexpected property mystery")
	})

	t.Run("unknown properties fail uniformly regardless of value kind", func(t *testing.T) {
		_, err := typ.Create(Entity{"key": "k", "name": "n", "mystery": "s"})
		assert.ErrorContains(t, err, "unexpected property mystery")
	})

	t.Run("missing required properties fail", func(t *testing.T) {
		_, err := typ.Create(Entity{"key": "k"})
		assert.ErrorContains(t, err, "required property name missing")
	})

	t.Run("identical inputs produce identical entities", func(t *testing.T) {
		a, err := typ.Create(Entity{"key": "k", "name": "n", "sort_order": 3})
		require.NoError(t, err)
		b, err := typ.Create(Entity{"key": "k", "name": "n", "sort_order": 3})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestEntityTypeID(t *testing.T) {
	t.Run("non-string parameters format through their property", func(t *testing.T) {
		typ, err := NewEdgeType(EdgeSpec{Label: "OWNER", Expirable: true})
		require.NoError(t, err)

		id, err := typ.ID(Entity{
			FromName: "Table:t", ToName: "User:u",
			"created": time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		assert.Equal(t, "OWNER:2023-04-01T10:00:00:Table:t->User:u", id)
	})

	t.Run("missing parameters fail", func(t *testing.T) {
		typ, err := NewVertexType(VertexSpec{Label: "Column"}, "")
		require.NoError(t, err)
		_, err = typ.ID(Entity{})
		assert.ErrorContains(t, err, "missing parameter")
	})
}
