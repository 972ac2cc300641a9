package graph

import (
	"fmt"
	"sort"
)

// Kind distinguishes vertex types from edge types.
type Kind int

const (
	KindVertex Kind = iota
	KindEdge
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindEdge {
		return "edge"
	}
	return "vertex"
}

// Default identifier templates.
const (
	DefaultVertexIDFormat        = "{~label}:{key}"
	DefaultEdgeIDFormat          = "{~label}:{~from}->{~to}"
	DefaultExpirableEdgeIDFormat = "{~label}:{created}:{~from}->{~to}"
)

// Entity is a realized vertex or edge instance: a mapping of property name
// to raw (unformatted) value.
type Entity map[string]any

// Default is one (name, value) pair in a type's ordered default list.
type Default struct {
	Name  string
	Value any
}

// EntityType is the schema definition for one label: its properties, its
// identifier template, and its ordered defaults. Construct through
// NewVertexType or NewEdgeType; a zero EntityType is not usable.
//
// Changing a label, a property's type, or the effective id format requires
// reloading all previously persisted data of that type.
type EntityType struct {
	Label     string
	Kind      Kind
	Expirable bool

	props      map[string]Property
	propList   []Property
	idTemplate *IDTemplate
	keyProps   []Property
	defaults   []Default
}

// VertexSpec describes a vertex type to construct.
type VertexSpec struct {
	Label      string
	Properties []Property
	IDFormat   string // defaults to DefaultVertexIDFormat
}

// EdgeSpec describes an edge type to construct.
type EdgeSpec struct {
	Label      string
	Properties []Property
	Expirable  bool
	IDFormat   string // defaults per Expirable
}

// NewVertexType builds a vertex type. The property set always gains ~id,
// ~label and key. When shard is non-empty the type also gains a shard
// property defaulted to that value, and the id format is prefixed with
// "{shard}:" unless the format already references it; this keeps
// otherwise-identical datasets isolated by shard in a shared store.
func NewVertexType(spec VertexSpec, shard string) (*EntityType, error) {
	props := append([]Property{PropID, PropLabel, PropKey}, spec.Properties...)

	idFormat := spec.IDFormat
	if idFormat == "" {
		idFormat = DefaultVertexIDFormat
	}
	var defaults []Default
	if shard != "" {
		props = append(props, PropShard)
		defaults = append(defaults, Default{Name: PropShard.Name, Value: shard})
		if tmpl, err := ParseIDTemplate(idFormat); err != nil {
			return nil, fmt.Errorf("vertex type %s: %w", spec.Label, err)
		} else if !tmpl.Contains(PropShard.Name) {
			idFormat = "{shard}:" + idFormat
		}
	}

	return newEntityType(spec.Label, KindVertex, false, props, idFormat, defaults)
}

// NewEdgeType builds an edge type. The property set always gains ~id,
// ~label, ~from, ~to and created, plus expired when the type is expirable.
// Edge ids are shard-free: endpoint ids carry the shard already.
func NewEdgeType(spec EdgeSpec) (*EntityType, error) {
	props := append([]Property{PropID, PropLabel, PropFrom, PropTo, PropCreated}, spec.Properties...)

	idFormat := spec.IDFormat
	if spec.Expirable {
		props = append(props, PropExpired)
		if idFormat == "" {
			idFormat = DefaultExpirableEdgeIDFormat
		}
	} else if idFormat == "" {
		idFormat = DefaultEdgeIDFormat
	}

	return newEntityType(spec.Label, KindEdge, spec.Expirable, props, idFormat, nil)
}

func newEntityType(label string, kind Kind, expirable bool, props []Property, idFormat string, defaults []Default) (*EntityType, error) {
	byName := make(map[string]Property, len(props))
	list := make([]Property, 0, len(props))
	for _, p := range props {
		if prev, ok := byName[p.Name]; ok {
			if prev != p {
				return nil, fmt.Errorf("%s type %s: property %s declared twice with different definitions", kind, label, p.Name)
			}
			continue
		}
		byName[p.Name] = p
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	tmpl, err := ParseIDTemplate(idFormat)
	if err != nil {
		return nil, fmt.Errorf("%s type %s: %w", kind, label, err)
	}
	var keyProps []Property
	for _, name := range tmpl.Params() {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%s type %s: id format %q parameter %q not found among properties", kind, label, idFormat, name)
		}
		keyProps = append(keyProps, p)
	}

	return &EntityType{
		Label:      label,
		Kind:       kind,
		Expirable:  expirable,
		props:      byName,
		propList:   list,
		idTemplate: tmpl,
		keyProps:   keyProps,
		defaults:   defaults,
	}, nil
}

// Properties returns the declared properties sorted by name.
func (t *EntityType) Properties() []Property { return t.propList }

// Property looks up a declared property by name.
func (t *EntityType) Property(name string) (Property, bool) {
	p, ok := t.props[name]
	return p, ok
}

// KeyProperties returns the properties referenced by the id-format template,
// resolved once at construction.
func (t *EntityType) KeyProperties() []Property { return t.keyProps }

// IDFormat returns the effective identifier template source.
func (t *EntityType) IDFormat() string { return t.idTemplate.Source() }

// ID synthesizes the identifier for an entity from the type's id-format
// template. Values are formatted through their property's formatter unless
// they are already strings; ~label is always available as the type's label.
func (t *EntityType) ID(entity Entity) (string, error) {
	values := make(map[string]string, len(entity)+1)
	for _, d := range t.defaults {
		if _, ok := entity[d.Name]; !ok {
			if s, err := t.formatIDValue(d.Name, d.Value); err != nil {
				return "", err
			} else if s != "" {
				values[d.Name] = s
			}
		}
	}
	for name, value := range entity {
		s, err := t.formatIDValue(name, value)
		if err != nil {
			return "", err
		}
		values[name] = s
	}
	values[LabelName] = t.Label
	id, err := t.idTemplate.Render(values)
	if err != nil {
		return "", fmt.Errorf("%s type %s: %w", t.Kind, t.Label, err)
	}
	return id, nil
}

func (t *EntityType) formatIDValue(name string, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	p, ok := t.props[name]
	if !ok {
		return "", fmt.Errorf("%s type %s: unknown property %s", t.Kind, t.Label, name)
	}
	s, err := p.Format(value)
	if err != nil {
		return "", fmt.Errorf("%s type %s: %w", t.Kind, t.Label, err)
	}
	return s, nil
}

// Create realizes an entity of this type from raw properties: the id and
// label magic properties are synthesized when absent, the type's defaults and
// per-property defaults fill remaining gaps, nil values are dropped, and the
// result is validated against the declared property set (unknown or missing
// required properties are errors).
func (t *EntityType) Create(raw Entity) (Entity, error) {
	// validate names before id synthesis so a stray property reports as
	// unexpected rather than failing inside template formatting
	for name := range raw {
		if _, ok := t.props[name]; !ok {
			return nil, fmt.Errorf("%s type %s: unexpected property %s", t.Kind, t.Label, name)
		}
	}

	entity := make(Entity, len(raw)+4)
	for k, v := range raw {
		entity[k] = v
	}

	if _, declared := t.props[IDName]; declared {
		if _, ok := entity[IDName]; !ok {
			id, err := t.ID(raw)
			if err != nil {
				return nil, err
			}
			entity[IDName] = id
		}
	}
	if _, declared := t.props[LabelName]; declared {
		if _, ok := entity[LabelName]; !ok {
			entity[LabelName] = t.Label
		}
	}
	for _, d := range t.defaults {
		if _, ok := entity[d.Name]; !ok {
			entity[d.Name] = d.Value
		}
	}
	for k, v := range entity {
		if v == nil {
			delete(entity, k)
		}
	}
	for name, p := range t.props {
		if p.Default == nil {
			continue
		}
		if _, ok := entity[name]; !ok {
			entity[name] = p.Default
		}
	}

	for name, p := range t.props {
		if !p.Required {
			continue
		}
		if _, ok := entity[name]; !ok {
			return nil, fmt.Errorf("%s type %s: required property %s missing", t.Kind, t.Label, name)
		}
	}
	return entity, nil
}
