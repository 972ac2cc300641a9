package graph

import (
	"fmt"
	"strings"
)

// IDTemplate is a parsed identifier template like "{~label}:{key}". Its
// parameters are discovered by lexing the {name} placeholders directly, so a
// type can assert at construction time that every parameter is one of its
// properties.
type IDTemplate struct {
	source   string
	segments []segment
	params   []string
}

// segment is either a literal run or a placeholder reference.
type segment struct {
	literal string
	param   string
}

// ParseIDTemplate parses an identifier template. Unbalanced or empty
// placeholders are errors.
func ParseIDTemplate(source string) (*IDTemplate, error) {
	t := &IDTemplate{source: source}
	seen := make(map[string]bool)
	rest := source
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return nil, fmt.Errorf("id format %q: unbalanced '}'", source)
			}
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: rest[:open]})
		}
		rest = rest[open+1:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return nil, fmt.Errorf("id format %q: unbalanced '{'", source)
		}
		name := rest[:end]
		if name == "" {
			return nil, fmt.Errorf("id format %q: empty placeholder", source)
		}
		t.segments = append(t.segments, segment{param: name})
		if !seen[name] {
			seen[name] = true
			t.params = append(t.params, name)
		}
		rest = rest[end+1:]
	}
	return t, nil
}

// Source returns the original template string.
func (t *IDTemplate) Source() string { return t.source }

// Params returns the distinct placeholder names in order of first appearance.
func (t *IDTemplate) Params() []string { return t.params }

// Contains reports whether name is one of the template's parameters.
func (t *IDTemplate) Contains(name string) bool {
	for _, p := range t.params {
		if p == name {
			return true
		}
	}
	return false
}

// Render substitutes values into the template. Every parameter must be
// present in values.
func (t *IDTemplate) Render(values map[string]string) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if s.param == "" {
			b.WriteString(s.literal)
			continue
		}
		v, ok := values[s.param]
		if !ok {
			return "", fmt.Errorf("id format %q: missing parameter %q", t.source, s.param)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
