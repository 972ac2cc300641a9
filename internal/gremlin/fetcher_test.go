package gremlin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSubmitter struct {
	scripts []string
	rows    []any
	err     error
}

func (s *scriptedSubmitter) Submit(_ context.Context, script string) ([]any, error) {
	s.scripts = append(s.scripts, script)
	return s.rows, s.err
}

func TestFetcherVertices(t *testing.T) {
	sub := &scriptedSubmitter{rows: []any{
		map[string]any{
			"id": "Table:a", "label": "Table",
			"key": "a", "name": "orders",
			"application_url": []any{"https://x", "https://y"},
		},
	}}
	f := NewFetcher(sub, NeptuneTranslator(), nil)

	records, err := f.Vertices(context.Background(), []string{"Table:a"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, `g.V("Table:a").elementMap()`, sub.scripts[0])
	assert.Equal(t, "Table:a", records[0].ID)
	assert.Equal(t, "Table", records[0].Label)
	assert.Equal(t, []any{"orders"}, records[0].Properties["name"])
	assert.Equal(t, []any{"https://x", "https://y"}, records[0].Properties["application_url"])
	assert.NotContains(t, records[0].Properties, "id")

	t.Run("empty id batches skip the round trip", func(t *testing.T) {
		records, err := f.Vertices(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Len(t, sub.scripts, 1)
	})
}

func TestFetcherOutEdges(t *testing.T) {
	sub := &scriptedSubmitter{rows: []any{
		map[string]any{
			"id": "COLUMN:Table:a->Column:b", "label": "COLUMN",
			"OUT":     map[string]any{"id": "Table:a", "label": "Table"},
			"IN":      map[string]any{"id": "Column:b", "label": "Column"},
			"created": "2023-04-01T00:00:00",
		},
	}}
	f := NewFetcher(sub, NeptuneTranslator(), nil)

	records, err := f.OutEdges(context.Background(), []string{"Table:a"}, []string{"COLUMN", "DESCRIPTION"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, `g.V("Table:a").outE("COLUMN","DESCRIPTION").elementMap()`, sub.scripts[0])
	assert.Equal(t, "Table:a", records[0].From)
	assert.Equal(t, "Column:b", records[0].To)
	assert.Equal(t, []any{"2023-04-01T00:00:00"}, records[0].Properties["created"])
	assert.NotContains(t, records[0].Properties, "OUT")
}

func TestFetcherConnectedVertexKeys(t *testing.T) {
	sub := &scriptedSubmitter{rows: []any{"a", "b"}}
	f := NewFetcher(sub, NeptuneTranslator(), nil)

	keys, err := f.ConnectedVertexKeys(context.Background(), "Table")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, `g.V().hasLabel("Table").where(__.bothE()).values("key")`, sub.scripts[0])
}

func TestFetcherMalformedRows(t *testing.T) {
	f := NewFetcher(&scriptedSubmitter{rows: []any{map[string]any{"label": "Table"}}}, NeptuneTranslator(), nil)
	_, err := f.Vertices(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "no string id")

	f = NewFetcher(&scriptedSubmitter{rows: []any{"not-a-map"}}, NeptuneTranslator(), nil)
	_, err = f.IncidentEdges(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "expected element map")
}
