package graph

import (
	"fmt"
	"sort"
)

// VertexTypes groups the catalog's vertex type definitions.
type VertexTypes struct {
	Application             *EntityType
	Cluster                 *EntityType
	Column                  *EntityType
	Database                *EntityType
	Description             *EntityType
	ProgrammaticDescription *EntityType
	Schema                  *EntityType
	Source                  *EntityType
	Stat                    *EntityType
	Table                   *EntityType
	Tag                     *EntityType
	Timestamp               *EntityType
	Updatedtimestamp        *EntityType
	User                    *EntityType
	Watermark               *EntityType
}

// EdgeTypes groups the catalog's edge type definitions.
type EdgeTypes struct {
	Admin         *EntityType
	BelongToTable *EntityType
	Cluster       *EntityType
	Column        *EntityType
	Database      *EntityType
	Description   *EntityType
	Follow        *EntityType
	Generates     *EntityType
	LastUpdatedAt *EntityType
	ManagedBy     *EntityType
	Owner         *EntityType
	Read          *EntityType
	ReadWrite     *EntityType
	ReadOnly      *EntityType
	Schema        *EntityType
	Source        *EntityType
	Stat          *EntityType
	Table         *EntityType
	Tag           *EntityType
}

// Schema owns the fixed catalog of vertex and edge type definitions,
// analogous to a database schema, and provides O(1) lookup by label. It is
// immutable once constructed; all lookup tables are built eagerly here.
type Schema struct {
	Vertices VertexTypes
	Edges    EdgeTypes

	shard   string
	byLabel map[string]*EntityType
	ordered []*EntityType
}

// schemaBuilder registers types into a Schema, retaining the first error so
// the catalog below can stay declarative.
type schemaBuilder struct {
	s   *Schema
	err error
}

func (b *schemaBuilder) vertex(spec VertexSpec) *EntityType {
	if b.err != nil {
		return nil
	}
	t, err := NewVertexType(spec, b.s.shard)
	if err != nil {
		b.err = err
		return nil
	}
	b.register(t)
	return t
}

func (b *schemaBuilder) edge(spec EdgeSpec) *EntityType {
	if b.err != nil {
		return nil
	}
	t, err := NewEdgeType(spec)
	if err != nil {
		b.err = err
		return nil
	}
	b.register(t)
	return t
}

func (b *schemaBuilder) register(t *EntityType) {
	if _, exists := b.s.byLabel[t.Label]; exists {
		b.err = fmt.Errorf("duplicate label %s", t.Label)
		return
	}
	b.s.byLabel[t.Label] = t
	b.s.ordered = append(b.s.ordered, t)
}

// NewSchema constructs the catalog. The shard guard is read once here; when
// it yields a non-empty shard every vertex type is shard-qualified.
// Duplicate labels and malformed id formats are construction errors.
func NewSchema(shards *ShardGuard) (*Schema, error) {
	s := &Schema{shard: shards.Get(), byLabel: make(map[string]*EntityType)}
	b := &schemaBuilder{s: s}

	s.Vertices.Application = b.vertex(VertexSpec{
		Label: "Application",
		Properties: []Property{
			{Name: "id", Type: TypeString, Required: true},
			{Name: "name", Type: TypeString},
			{Name: "description", Type: TypeString},
			// one url per application kind, so keep them all
			{Name: "application_url", Type: TypeString, Cardinality: CardinalitySet},
		}})
	s.Vertices.Cluster = b.vertex(VertexSpec{
		Label:      "Cluster",
		Properties: []Property{{Name: "name", Type: TypeString, Required: true}}})
	s.Vertices.Column = b.vertex(VertexSpec{
		Label: "Column",
		Properties: []Property{
			{Name: "name", Type: TypeString, Required: true},
			{Name: "sort_order", Type: TypeInt},
			{Name: "col_type", Type: TypeString},
		}})
	s.Vertices.Database = b.vertex(VertexSpec{
		Label:      "Database",
		Properties: []Property{{Name: "name", Type: TypeString, Required: true}}})
	s.Vertices.Description = b.vertex(VertexSpec{
		Label: "Description",
		Properties: []Property{
			{Name: "description", Type: TypeString, Required: true},
			{Name: "description_source", Type: TypeString, Required: true, Comment: "effectively an enum"},
		}})
	s.Vertices.ProgrammaticDescription = b.vertex(VertexSpec{
		Label: "Programmatic_Description",
		Properties: []Property{
			{Name: "description", Type: TypeString, Required: true},
			{Name: "description_source", Type: TypeString, Required: true, Comment: "effectively an enum"},
		}})
	s.Vertices.Schema = b.vertex(VertexSpec{
		Label:      "Schema",
		Properties: []Property{{Name: "name", Type: TypeString, Required: true}}})
	s.Vertices.Source = b.vertex(VertexSpec{Label: "Source"})
	s.Vertices.Stat = b.vertex(VertexSpec{
		Label: "Stat",
		Properties: []Property{
			{Name: "stat_val", Type: TypeString},
			{Name: "stat_type", Type: TypeString, Comment: "effectively an enum"},
			{Name: "start_epoch", Type: TypeDate},
			{Name: "end_epoch", Type: TypeDate},
		}})
	s.Vertices.Table = b.vertex(VertexSpec{
		Label: "Table",
		Properties: []Property{
			{Name: "name", Type: TypeString, Required: true},
			{Name: "is_view", Type: TypeBoolean},
			{Name: "display_name", Type: TypeString},
		}})
	s.Vertices.Tag = b.vertex(VertexSpec{
		Label: "Tag",
		Properties: []Property{
			{Name: "tag_name", Type: TypeString, Required: true},
			{Name: "tag_type", Type: TypeString, Required: true, Default: "default", Comment: "effectively an enum, usually default"},
		}})
	s.Vertices.Timestamp = b.vertex(VertexSpec{Label: "Timestamp"})
	s.Vertices.Updatedtimestamp = b.vertex(VertexSpec{
		Label:      "Updatedtimestamp",
		Properties: []Property{{Name: "latest_timestamp", Type: TypeDate, Required: true}}})
	s.Vertices.User = b.vertex(VertexSpec{
		Label: "User",
		Properties: []Property{
			{Name: "user_id", Type: TypeString, Required: true},
			{Name: "email", Type: TypeString},
			{Name: "full_name", Type: TypeString},
			{Name: "first_name", Type: TypeString},
			{Name: "last_name", Type: TypeString},
			{Name: "display_name", Type: TypeString},
			{Name: "team_name", Type: TypeString},
			{Name: "employee_type", Type: TypeString, Comment: "effectively an enum"},
			{Name: "is_active", Type: TypeBoolean},
			{Name: "profile_url", Type: TypeString},
			{Name: "role_name", Type: TypeString},
			{Name: "slack_id", Type: TypeString},
			{Name: "github_username", Type: TypeString},
			{Name: "manager_fullname", Type: TypeString},
			{Name: "manager_email", Type: TypeString},
			{Name: "manager_id", Type: TypeString, Comment: "the key/user_id of the User managing this User"},
			{Name: "is_robot", Type: TypeBoolean},
		}})
	s.Vertices.Watermark = b.vertex(VertexSpec{Label: "Watermark"})

	s.Edges.Admin = b.edge(EdgeSpec{Label: "ADMIN", Expirable: true})
	s.Edges.BelongToTable = b.edge(EdgeSpec{Label: "BELONG_TO_TABLE", Expirable: true})
	s.Edges.Cluster = b.edge(EdgeSpec{Label: "CLUSTER", Expirable: true})
	s.Edges.Column = b.edge(EdgeSpec{Label: "COLUMN", Expirable: true})
	s.Edges.Database = b.edge(EdgeSpec{Label: "DATABASE", Expirable: true})
	s.Edges.Description = b.edge(EdgeSpec{Label: "DESCRIPTION", Expirable: true})
	s.Edges.Follow = b.edge(EdgeSpec{Label: "FOLLOW", Expirable: true})
	s.Edges.Generates = b.edge(EdgeSpec{Label: "GENERATES", Expirable: true})
	s.Edges.LastUpdatedAt = b.edge(EdgeSpec{Label: "LAST_UPDATED_AT", Expirable: true})
	s.Edges.ManagedBy = b.edge(EdgeSpec{Label: "MANAGED_BY", Expirable: true})
	s.Edges.Owner = b.edge(EdgeSpec{Label: "OWNER", Expirable: true})
	s.Edges.Read = b.edge(EdgeSpec{
		Label:     "READ",
		Expirable: true,
		// keyed by day so repeated reads fold into one edge
		IDFormat: "{~label}:{date}:{~from}->{~to}",
		Properties: []Property{
			{Name: "date", Type: TypeDate, Required: true},
			{Name: "read_count", Type: TypeLong, Required: true},
		}})
	s.Edges.ReadWrite = b.edge(EdgeSpec{Label: "READ_WRITE", Expirable: true})
	s.Edges.ReadOnly = b.edge(EdgeSpec{Label: "READ_ONLY", Expirable: true})
	s.Edges.Schema = b.edge(EdgeSpec{Label: "SCHEMA", Expirable: true})
	s.Edges.Source = b.edge(EdgeSpec{Label: "SOURCE", Expirable: true})
	s.Edges.Stat = b.edge(EdgeSpec{Label: "STAT", Expirable: true})
	s.Edges.Table = b.edge(EdgeSpec{Label: "TABLE", Expirable: true})
	s.Edges.Tag = b.edge(EdgeSpec{Label: "TAG", Expirable: true})

	if b.err != nil {
		return nil, b.err
	}
	return s, nil
}

// Shard returns the shard the schema was constructed under; empty when none
// is active.
func (s *Schema) Shard() string { return s.shard }

// ByLabel looks up a type by label.
func (s *Schema) ByLabel(label string) (*EntityType, bool) {
	t, ok := s.byLabel[label]
	return t, ok
}

// Types returns every type in registration order.
func (s *Schema) Types() []*EntityType { return s.ordered }

// VertexTypeList returns the vertex types sorted by label.
func (s *Schema) VertexTypeList() []*EntityType { return s.kindList(KindVertex) }

// EdgeTypeList returns the edge types sorted by label.
func (s *Schema) EdgeTypeList() []*EntityType { return s.kindList(KindEdge) }

// ExpirableEdges returns the edge types declaring the expired property.
func (s *Schema) ExpirableEdges() []*EntityType {
	var out []*EntityType
	for _, t := range s.kindList(KindEdge) {
		if t.Expirable {
			out = append(out, t)
		}
	}
	return out
}

func (s *Schema) kindList(k Kind) []*EntityType {
	var out []*EntityType
	for _, t := range s.ordered {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
