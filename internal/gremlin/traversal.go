// Package gremlin builds abstract traversal steps, translates them into
// dialect-specific Groovy scripts, and submits them to a Gremlin Server
// endpoint over a websocket.
package gremlin

// Traversal is an ordered list of steps rooted at a traversal source. Build
// one with G or Anon and chain step methods; translation to script text
// happens separately per dialect.
type Traversal struct {
	source string
	steps  []step
}

type step struct {
	name string
	args []any
}

// G starts a traversal at the named source, conventionally "g".
func G(source string) *Traversal {
	return &Traversal{source: source}
}

// Anon starts an anonymous traversal for use as a step argument.
func Anon() *Traversal {
	return &Traversal{source: "__"}
}

func (t *Traversal) add(name string, args ...any) *Traversal {
	t.steps = append(t.steps, step{name: name, args: args})
	return t
}

// V starts from the given vertex ids, or all vertices when none are given.
func (t *Traversal) V(ids ...string) *Traversal {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return t.add("V", args...)
}

func (t *Traversal) HasLabel(label string) *Traversal { return t.add("hasLabel", label) }

func (t *Traversal) Has(name string, value any) *Traversal { return t.add("has", name, value) }

func (t *Traversal) Where(inner *Traversal) *Traversal { return t.add("where", inner) }

func (t *Traversal) Values(names ...string) *Traversal {
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}
	return t.add("values", args...)
}

func (t *Traversal) OutE(labels ...string) *Traversal { return t.add("outE", labelArgs(labels)...) }

func (t *Traversal) BothE(labels ...string) *Traversal { return t.add("bothE", labelArgs(labels)...) }

func (t *Traversal) OutV() *Traversal { return t.add("outV") }

func (t *Traversal) InV() *Traversal { return t.add("inV") }

// ElementMap projects each element to a flat map including its id and label.
func (t *Traversal) ElementMap() *Traversal { return t.add("elementMap") }

func (t *Traversal) Property(name string, value any) *Traversal {
	return t.add("property", name, value)
}

func (t *Traversal) Drop() *Traversal { return t.add("drop") }

func (t *Traversal) Fold() *Traversal { return t.add("fold") }

func (t *Traversal) Unfold() *Traversal { return t.add("unfold") }

func (t *Traversal) Limit(n int) *Traversal { return t.add("limit", n) }

func (t *Traversal) Count() *Traversal { return t.add("count") }

func (t *Traversal) Dedup() *Traversal { return t.add("dedup") }

func labelArgs(labels []string) []any {
	args := make([]any, len(labels))
	for i, label := range labels {
		args[i] = label
	}
	return args
}

// Predicate is a comparison applied to a step argument, like within(...).
type Predicate struct {
	Operator string
	Value    any
}

// Within matches any of the given values.
func Within(values ...string) Predicate {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return Predicate{Operator: "within", Value: args}
}

// Without matches none of the given values.
func Without(values ...string) Predicate {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return Predicate{Operator: "without", Value: args}
}
