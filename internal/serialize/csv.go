package serialize

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/graphcat/graphcat/internal/graph"
)

// Render writes one partition's entities as a tabular batch: a single header
// row followed by one row per entity, rows ordered by id. entities is keyed
// by label; types not present render no rows. Nothing is written when the
// partition has no entities.
func Render(w io.Writer, types []*graph.EntityType, entities map[string][]graph.Entity) error {
	properties, err := MergeProperties(types)
	if err != nil {
		return err
	}

	var rows []map[string]string
	for _, t := range types {
		for _, entity := range entities[t.Label] {
			row, err := formatEntity(t, entity)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][graph.IDName] < rows[j][graph.IDName] })

	// only the columns some row actually uses materialize
	used := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			used[name] = true
		}
	}
	if len(used) == 0 {
		return nil
	}
	names := make([]string, 0, len(used))
	for name := range used {
		if _, ok := properties[name]; !ok {
			return fmt.Errorf("entity property %s not declared by any type in the partition", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	cw := csv.NewWriter(w)
	header := make([]string, len(names))
	for i, name := range names {
		header[i] = properties[name].Header()
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(names))
	for _, row := range rows {
		for i, name := range names {
			record[i] = row[name]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MergeProperties folds the declared properties of all types into one column
// map, failing on any signature conflict. The merged property carries the
// effective cardinality so vertex headers read name:TYPE(single) while edge
// headers stay bare.
func MergeProperties(types []*graph.EntityType) (map[string]graph.Property, error) {
	def, err := defaultCardinality(types)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]graph.Property)
	for _, t := range types {
		for _, p := range t.Properties() {
			sig := p.Signature(def)
			column := graph.Property{Name: p.Name, Type: sig.Type, Cardinality: sig.Cardinality, Magic: p.Magic}
			if prior, ok := merged[p.Name]; ok {
				if prior != column {
					return nil, fmt.Errorf("incompatible signatures for property %s: %v and %v", p.Name, prior, column)
				}
				continue
			}
			merged[p.Name] = column
		}
	}
	return merged, nil
}

// formatEntity renders every property value of one entity canonically.
// Unknown and missing-required properties are caller bugs and fail the
// render.
func formatEntity(t *graph.EntityType, entity graph.Entity) (map[string]string, error) {
	row := make(map[string]string, len(entity))
	for name, value := range entity {
		p, ok := t.Property(name)
		if !ok {
			return nil, fmt.Errorf("%s type %s: entity carries undeclared property %s", t.Kind, t.Label, name)
		}
		formatted, err := p.Format(value)
		if err != nil {
			return nil, fmt.Errorf("%s type %s: %w", t.Kind, t.Label, err)
		}
		row[name] = formatted
	}
	for _, p := range t.Properties() {
		if !p.Required {
			continue
		}
		if _, ok := row[p.Name]; !ok {
			return nil, fmt.Errorf("%s type %s: required property %s missing", t.Kind, t.Label, p.Name)
		}
	}
	return row, nil
}
