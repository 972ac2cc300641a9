package graph

import "fmt"

// Cardinality controls how many values a vertex property may carry. Edge
// properties have no cardinality (always single by construction); vertex
// properties default to single when unset.
type Cardinality int

const (
	CardinalityUnset Cardinality = iota
	CardinalitySingle
	CardinalitySet
	CardinalityList
)

// String returns the cardinality name as it appears in serialized headers.
func (c Cardinality) String() string {
	switch c {
	case CardinalitySingle:
		return "single"
	case CardinalitySet:
		return "set"
	case CardinalityList:
		return "list"
	default:
		return "unset"
	}
}

// Or substitutes def when the cardinality is unset.
func (c Cardinality) Or(def Cardinality) Cardinality {
	if c == CardinalityUnset {
		return def
	}
	return c
}

// Property describes one typed property of a vertex or edge type.
type Property struct {
	Name        string
	Type        ValueType
	Cardinality Cardinality
	MultiValued bool
	Required    bool
	Default     any
	Comment     string

	// Magic marks the reserved structural properties (~id, ~label, ~from,
	// ~to); they serialize as their bare name with no type annotation.
	Magic bool
}

// Signature is the (name, type, effective-cardinality) triple two properties
// must share to be merged into one serialization partition.
type Signature struct {
	Name        string
	Type        ValueType
	Cardinality Cardinality
}

// Signature computes the property's signature in a context with the given
// default cardinality.
func (p Property) Signature(def Cardinality) Signature {
	return Signature{Name: p.Name, Type: p.Type, Cardinality: p.Cardinality.Or(def)}
}

// Format renders a value of this property canonically.
func (p Property) Format(value any) (string, error) {
	s, err := p.Type.Format(value)
	if err != nil {
		return "", fmt.Errorf("property %s: %w", p.Name, err)
	}
	return s, nil
}

// Header renders the column header for this property. Magic properties emit
// only their reserved name.
func (p Property) Header() string {
	if p.Magic {
		return p.Name
	}
	h := p.Name + ":" + p.Type.String()
	if p.Cardinality != CardinalityUnset {
		h += "(" + p.Cardinality.String() + ")"
	}
	if p.MultiValued {
		h += "[]"
	}
	return h
}

// Reserved structural property names.
const (
	IDName    = "~id"
	LabelName = "~label"
	FromName  = "~from"
	ToName    = "~to"
)

// The magic properties, present on every entity of their kind.
var (
	PropID    = Property{Name: IDName, Type: TypeString, Required: true, Magic: true}
	PropLabel = Property{Name: LabelName, Type: TypeString, Required: true, Magic: true}
	PropFrom  = Property{Name: FromName, Type: TypeString, Required: true, Magic: true}
	PropTo    = Property{Name: ToName, Type: TypeString, Required: true, Magic: true}
)

// Well-known properties shared across the catalog.
var (
	// PropKey is unique within a label.
	PropKey = Property{Name: "key", Type: TypeString, Required: true}

	PropCreated = Property{Name: "created", Type: TypeDate, Required: true}

	// PropExpired is only declared on expirable edge types.
	PropExpired = Property{Name: "expired", Type: TypeDate}

	// PropShard is only present in development and testing. It separates
	// instances sharing a datastore.
	PropShard = Property{Name: "shard", Type: TypeString, Required: true}
)
