package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphcat/graphcat/internal/graph"
)

// Batch sizes for snapshot fetches. Tables fan out into many reachable
// entities so they are chunked smaller than users and applications.
const (
	fetchChunkTables   = 1000
	fetchChunkVertices = 5000
)

// VertexRecord is one stored vertex as reported by a Fetcher. Property
// values arrive as slices because multi-valued cardinalities report every
// element; single-valued properties report a one-element slice.
type VertexRecord struct {
	Label      string
	ID         string
	Properties map[string][]any
}

// EdgeRecord is one stored edge as reported by a Fetcher.
type EdgeRecord struct {
	Label      string
	ID         string
	From       string
	To         string
	Properties map[string][]any
}

// Fetcher reads the previously persisted graph. Implementations talk to the
// traversal endpoint; the engine treats them as opaque remote reads.
type Fetcher interface {
	// Vertices returns the stored vertices among the given ids.
	Vertices(ctx context.Context, ids []string) ([]VertexRecord, error)
	// OutEdges returns the stored out-edges of the given vertex ids
	// restricted to the given labels.
	OutEdges(ctx context.Context, ids []string, labels []string) ([]EdgeRecord, error)
	// ConnectedVertexKeys returns the key of every stored vertex of the
	// given label that has at least one incident edge.
	ConnectedVertexKeys(ctx context.Context, label string) ([]string, error)
	// IncidentEdges returns every stored edge touching the given vertex ids
	// on either end.
	IncidentEdges(ctx context.Context, ids []string) ([]EdgeRecord, error)
}

// FetchTableEntities loads the snapshot slice reachable from the given table
// records: the database/cluster/schema/table chains, their columns,
// descriptions and stats, and any application or user the tables' writers
// might resolve to.
func FetchTableEntities(ctx context.Context, fetcher Fetcher, schema *graph.Schema, tables []TableRecord, existing Existing, log *zap.Logger) error {
	for _, batch := range chunk(tables, fetchChunkTables) {
		ids, err := tableFetchIDs(schema, batch)
		if err != nil {
			return err
		}
		if err := fetchReachable(ctx, fetcher, schema, ids, existing, log); err != nil {
			return err
		}
	}
	return nil
}

// FetchUserEntities loads the stored vertices for the given user records.
func FetchUserEntities(ctx context.Context, fetcher Fetcher, schema *graph.Schema, users []UserRecord, existing Existing, log *zap.Logger) error {
	t := schema.Vertices.User
	var ids []string
	for _, user := range users {
		id, err := t.ID(graph.Entity{"key": user.UserID})
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return fetchVertices(ctx, fetcher, schema, ids, existing, log)
}

// FetchAppEntities loads the stored vertices for the given application
// records.
func FetchAppEntities(ctx context.Context, fetcher Fetcher, schema *graph.Schema, apps []ApplicationRecord, existing Existing, log *zap.Logger) error {
	t := schema.Vertices.Application
	var ids []string
	for _, app := range apps {
		id, err := t.ID(graph.Entity{"key": app.ID})
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return fetchVertices(ctx, fetcher, schema, ids, existing, log)
}

// tableFetchIDs computes every vertex id a table's snapshot slice can hang
// off: the chain vertices, the declared columns, and the writer's candidate
// application and user identities.
func tableFetchIDs(schema *graph.Schema, tables []TableRecord) ([]string, error) {
	v := schema.Vertices
	var ids []string
	add := func(t *graph.EntityType, key string) error {
		id, err := t.ID(graph.Entity{"key": key})
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	}
	for _, table := range tables {
		uris := URIsForTable(table.Database, table.Cluster, table.Schema, table.Name)
		for _, pair := range []struct {
			t   *graph.EntityType
			key string
		}{
			{v.Database, uris.Database},
			{v.Cluster, uris.Cluster},
			{v.Schema, uris.Schema},
			{v.Table, uris.Table},
		} {
			if err := add(pair.t, pair.key); err != nil {
				return nil, err
			}
		}
		for _, column := range table.Columns {
			if err := add(v.Column, MakeColumnURI(uris.Table, column.Name)); err != nil {
				return nil, err
			}
		}
		if table.TableWriter != "" {
			for _, candidate := range PossibleApplicationNames(table.TableWriter) {
				if err := add(v.Application, candidate); err != nil {
					return nil, err
				}
			}
			if err := add(v.User, table.TableWriter); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

// fetchReachable folds the given vertices plus their out-edges and the
// vertices those edges reach into the snapshot.
func fetchReachable(ctx context.Context, fetcher Fetcher, schema *graph.Schema, ids []string, existing Existing, log *zap.Logger) error {
	verts, err := fetcher.Vertices(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetching vertices: %w", err)
	}
	if _, err := intoExistingVertices(schema, verts, existing, log); err != nil {
		return err
	}

	var found []string
	for _, v := range verts {
		found = append(found, v.ID)
	}
	if len(found) == 0 {
		return nil
	}

	var labels []string
	for _, t := range schema.EdgeTypeList() {
		labels = append(labels, t.Label)
	}
	edges, err := fetcher.OutEdges(ctx, found, labels)
	if err != nil {
		return fmt.Errorf("fetching edges: %w", err)
	}
	folded, err := intoExisting(schema, edges, existing, log)
	if err != nil {
		return err
	}

	// pull in edge endpoints not already requested, mostly description and
	// stat vertices hanging off tables and columns
	seen := make(map[string]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	var more []string
	for _, e := range folded {
		if to, ok := e[graph.ToName].(string); ok && !seen[to] {
			seen[to] = true
			more = append(more, to)
		}
	}
	if len(more) == 0 {
		return nil
	}
	return fetchVertices(ctx, fetcher, schema, more, existing, log)
}

func fetchVertices(ctx context.Context, fetcher Fetcher, schema *graph.Schema, ids []string, existing Existing, log *zap.Logger) error {
	for _, batch := range chunk(ids, fetchChunkVertices) {
		verts, err := fetcher.Vertices(ctx, batch)
		if err != nil {
			return fmt.Errorf("fetching vertices: %w", err)
		}
		if _, err := intoExistingVertices(schema, verts, existing, log); err != nil {
			return err
		}
	}
	return nil
}

// intoExistingVertices folds fetched vertex records into the snapshot and
// returns the folded entities.
func intoExistingVertices(schema *graph.Schema, records []VertexRecord, existing Existing, log *zap.Logger) ([]graph.Entity, error) {
	var out []graph.Entity
	for _, rec := range records {
		t, ok := schema.ByLabel(rec.Label)
		if !ok {
			logUnknownLabel(log, rec.Label, rec.ID)
			continue
		}
		entity := coerceProperties(t, rec.Properties, log)
		entity[graph.IDName] = rec.ID
		entity[graph.LabelName] = rec.Label
		if err := register(t, entity, existing); err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// intoExisting folds fetched edge records into the snapshot and returns the
// folded entities.
func intoExisting(schema *graph.Schema, records []EdgeRecord, existing Existing, log *zap.Logger) ([]graph.Entity, error) {
	var out []graph.Entity
	for _, rec := range records {
		t, ok := schema.ByLabel(rec.Label)
		if !ok {
			logUnknownLabel(log, rec.Label, rec.ID)
			continue
		}
		entity := coerceProperties(t, rec.Properties, log)
		entity[graph.IDName] = rec.ID
		entity[graph.LabelName] = rec.Label
		entity[graph.FromName] = rec.From
		entity[graph.ToName] = rec.To
		if err := register(t, entity, existing); err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func register(t *graph.EntityType, entity graph.Entity, existing Existing) error {
	key, err := KeyFor(t, entity)
	if err != nil {
		return fmt.Errorf("keying fetched %s: %w", t.Label, err)
	}
	existing.ForType(t)[key] = entity
	return nil
}

// coerceProperties maps fetched multi-valued results back to the declared
// cardinalities: single properties take the lone element, set and list keep
// the slice. Properties the type does not declare are logged and skipped.
func coerceProperties(t *graph.EntityType, props map[string][]any, log *zap.Logger) graph.Entity {
	entity := make(graph.Entity, len(props))
	for name, values := range props {
		p, ok := t.Property(name)
		if !ok {
			if log != nil {
				log.Debug("dropping undeclared property from fetched entity",
					zap.String("label", t.Label),
					zap.String("property", name))
			}
			continue
		}
		if p.Signature(graph.CardinalitySingle).Cardinality == graph.CardinalitySingle {
			if len(values) != 1 && log != nil {
				log.Info("single-valued property fetched with multiple values",
					zap.String("label", t.Label),
					zap.String("property", name),
					zap.Int("count", len(values)))
			}
			if len(values) > 0 {
				entity[name] = values[0]
			}
			continue
		}
		entity[name] = values
	}
	return entity
}

func logUnknownLabel(log *zap.Logger, label, id string) {
	if log != nil {
		log.Info("dropping fetched entity with unknown label",
			zap.String("label", label),
			zap.String("id", id))
	}
}

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
