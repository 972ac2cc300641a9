package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphcat/graphcat/internal/graph"
)

// Entities is the target state for one run: entity type (by label) → id →
// entity. The first entity created for an id wins; later conflicting
// creations are logged, never overwritten.
type Entities map[string]map[string]graph.Entity

// NewEntities creates an empty target set.
func NewEntities() Entities { return make(Entities) }

// ForType returns the id map for a type, creating it if needed.
func (e Entities) ForType(t *graph.EntityType) map[string]graph.Entity {
	m, ok := e[t.Label]
	if !ok {
		m = make(map[string]graph.Entity)
		e[t.Label] = m
	}
	return m
}

// Get looks up an entity by type and id.
func (e Entities) Get(t *graph.EntityType, id string) (graph.Entity, bool) {
	ent, ok := e[t.Label][id]
	return ent, ok
}

// Len counts all entities across types.
func (e Entities) Len() int {
	n := 0
	for _, m := range e {
		n += len(m)
	}
	return n
}

// Key is a canonical, format-stable identity for one entity, derived from
// its type's key properties and independent of the literal id string. It is
// a sorted composite of (name, formattedValue) pairs so equality and hashing
// are deterministic.
type Key string

// Existing is the previously persisted snapshot: entity type (by label) →
// existing key → entity. It is populated once per run and read-only
// afterward, except that freshly created entities are registered so later
// records in the same run resolve consistently.
type Existing map[string]map[Key]graph.Entity

// NewExisting creates an empty snapshot.
func NewExisting() Existing { return make(Existing) }

// ForType returns the key map for a type, creating it if needed.
func (e Existing) ForType(t *graph.EntityType) map[Key]graph.Entity {
	m, ok := e[t.Label]
	if !ok {
		m = make(map[Key]graph.Entity)
		e[t.Label] = m
	}
	return m
}

// KeyFor derives the existing-key for an entity of the given type: the
// type's key properties, minus label always, minus created for edges (it
// varies run to run), minus shard for vertices (so datasets match across
// shard changes), as sorted (name, formattedValue) pairs.
func KeyFor(t *graph.EntityType, entity graph.Entity) (Key, error) {
	var pairs []string
	for _, p := range t.KeyProperties() {
		if p.Name == graph.LabelName {
			continue
		}
		if t.Kind == graph.KindEdge && p.Name == graph.PropCreated.Name {
			continue
		}
		if t.Kind == graph.KindVertex && p.Name == graph.PropShard.Name {
			continue
		}
		value, ok := entity[p.Name]
		if !ok || value == nil {
			return "", fmt.Errorf("%s type %s: key property %s missing", t.Kind, t.Label, p.Name)
		}
		formatted, ok := value.(string)
		if !ok {
			var err error
			formatted, err = p.Format(value)
			if err != nil {
				return "", fmt.Errorf("%s type %s: %w", t.Kind, t.Label, err)
			}
		}
		pairs = append(pairs, p.Name+"\x1f"+formatted)
	}
	sort.Strings(pairs)
	return Key(strings.Join(pairs, "\x1e")), nil
}
