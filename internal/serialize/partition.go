// Package serialize splits entity types into property-compatible groups and
// renders them to the tabular bulk-load format. A group shares one header
// row, so no two types in it may declare the same property name with a
// different (type, cardinality) signature.
package serialize

import (
	"fmt"
	"sort"

	"github.com/graphcat/graphcat/internal/graph"
)

// Partition splits types into the fewest groups whose members have no
// property signature conflicts. All types must be of one kind; vertex
// properties take the single cardinality as their signature default, edge
// properties none. The returned groups exactly cover the input with no
// overlap.
func Partition(types []*graph.EntityType) ([][]*graph.EntityType, error) {
	def, err := defaultCardinality(types)
	if err != nil {
		return nil, err
	}

	var partitioned [][]*graph.EntityType
	var split func(group []*graph.EntityType) error
	split = func(group []*graph.EntityType) error {
		name, signatures, ok := firstConflict(group, def)
		if !ok {
			partitioned = append(partitioned, group)
			return nil
		}

		// one group per distinct signature of the conflicting property;
		// these cannot overlap because a type declares the name once
		byType := make(map[*graph.EntityType]int, len(group))
		groups := make([][]*graph.EntityType, len(signatures))
		for _, t := range group {
			p, ok := t.Property(name)
			if !ok {
				continue
			}
			sig := p.Signature(def)
			for i, s := range signatures {
				if sig == s {
					byType[t] = i
					groups[i] = append(groups[i], t)
					break
				}
			}
		}

		// untouched types fold into the largest group
		largest := 0
		for i, g := range groups {
			if len(g) > len(groups[largest]) {
				largest = i
			}
		}
		for _, t := range group {
			if _, conflicted := byType[t]; !conflicted {
				groups[largest] = append(groups[largest], t)
			}
		}

		total := 0
		for _, g := range groups {
			if len(g) == 0 || len(g) == len(group) {
				return fmt.Errorf("partitioning made no progress on property %s", name)
			}
			total += len(g)
		}
		if total != len(group) {
			return fmt.Errorf("partitioning lost types on property %s", name)
		}

		for _, g := range groups {
			if err := split(g); err != nil {
				return err
			}
		}
		return nil
	}
	if len(types) > 0 {
		if err := split(types); err != nil {
			return nil, err
		}
	}

	seen := make(map[*graph.EntityType]bool)
	for _, group := range partitioned {
		for _, t := range group {
			if seen[t] {
				return nil, fmt.Errorf("partitions overlap on %s", t.Label)
			}
			seen[t] = true
		}
	}
	if len(seen) != len(types) {
		return nil, fmt.Errorf("partitions cover %d of %d types", len(seen), len(types))
	}
	return partitioned, nil
}

// firstConflict finds the lexicographically first property name declared
// with more than one signature across the group, returning its distinct
// signatures in a stable order.
func firstConflict(group []*graph.EntityType, def graph.Cardinality) (string, []graph.Signature, bool) {
	byName := make(map[string][]graph.Signature)
	for _, t := range group {
		for _, p := range t.Properties() {
			sig := p.Signature(def)
			known := false
			for _, s := range byName[p.Name] {
				if s == sig {
					known = true
					break
				}
			}
			if !known {
				byName[p.Name] = append(byName[p.Name], sig)
			}
		}
	}

	var conflicted []string
	for name, sigs := range byName {
		if len(sigs) > 1 {
			conflicted = append(conflicted, name)
		}
	}
	if len(conflicted) == 0 {
		return "", nil, false
	}
	sort.Strings(conflicted)
	name := conflicted[0]

	sigs := byName[name]
	sort.Slice(sigs, func(i, j int) bool {
		if sigs[i].Type != sigs[j].Type {
			return sigs[i].Type < sigs[j].Type
		}
		return sigs[i].Cardinality < sigs[j].Cardinality
	})
	return name, sigs, true
}

func defaultCardinality(types []*graph.EntityType) (graph.Cardinality, error) {
	for _, t := range types {
		if t.Kind != types[0].Kind {
			return graph.CardinalityUnset, fmt.Errorf("cannot partition mixed kinds: %s and %s", types[0].Kind, t.Kind)
		}
	}
	if len(types) > 0 && types[0].Kind == graph.KindVertex {
		return graph.CardinalitySingle, nil
	}
	return graph.CardinalityUnset, nil
}
