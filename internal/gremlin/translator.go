package gremlin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/graphcat/graphcat/internal/graph"
)

// Translator renders traversals as Groovy script text for one server
// dialect. Dialects differ only in how date literals are spelled.
type Translator struct {
	dateLiteral func(value time.Time, dayOnly bool) string
}

// NeptuneTranslator renders dates with the Neptune datetime() builtin.
func NeptuneTranslator() *Translator {
	return &Translator{dateLiteral: func(value time.Time, dayOnly bool) string {
		if dayOnly {
			return fmt.Sprintf("datetime(%q)", value.Format("2006-01-02"))
		}
		return fmt.Sprintf("datetime(%q)", value.Format("2006-01-02T15:04:05"))
	}}
}

// JanusgraphTranslator renders dates by parsing through SimpleDateFormat,
// which is strict, so the fractional seconds are always written out.
func JanusgraphTranslator() *Translator {
	return &Translator{dateLiteral: func(value time.Time, dayOnly bool) string {
		if dayOnly {
			return fmt.Sprintf(`new java.text.SimpleDateFormat("yyyy-MM-dd").parse(%q)`, value.Format("2006-01-02"))
		}
		return fmt.Sprintf(`new java.text.SimpleDateFormat("yyyy-MM-dd'T'HH:mm:ss.SSSSSS").parse(%q)`,
			value.Format("2006-01-02T15:04:05.000000"))
	}}
}

// Translate renders a traversal as script text.
func (tr *Translator) Translate(t *Traversal) (string, error) {
	var b strings.Builder
	b.WriteString(t.source)
	for _, s := range t.steps {
		b.WriteByte('.')
		b.WriteString(s.name)
		b.WriteByte('(')
		for i, arg := range s.args {
			if i > 0 {
				b.WriteByte(',')
			}
			converted, err := tr.convert(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(converted)
		}
		b.WriteByte(')')
	}
	return b.String(), nil
}

func (tr *Translator) convert(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		return EscapeJavaStyle(v), nil
	case time.Time:
		return tr.dateLiteral(v, false), nil
	case graph.Day:
		return tr.dateLiteral(v.Time(), true), nil
	case *Traversal:
		if v.source != "__" {
			return "", fmt.Errorf("nested traversal must be anonymous, not %q", v.source)
		}
		return tr.Translate(v)
	case Predicate:
		return tr.convertPredicate(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			converted, err := tr.convert(item)
			if err != nil {
				return "", err
			}
			parts[i] = converted
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			converted, err := tr.convert(v[name])
			if err != nil {
				return "", err
			}
			parts[i] = fmt.Sprintf("(%s):(%s)", EscapeJavaStyle(name), converted)
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	default:
		return "", fmt.Errorf("cannot translate %T %v to script", value, value)
	}
}

func (tr *Translator) convertPredicate(p Predicate) (string, error) {
	args, ok := p.Value.([]any)
	if !ok {
		args = []any{p.Value}
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		converted, err := tr.convert(arg)
		if err != nil {
			return "", err
		}
		parts[i] = converted
	}
	return p.Operator + "(" + strings.Join(parts, ",") + ")", nil
}

// EscapeJavaStyle quotes a string the way a Groovy source literal needs:
// backslash escapes for the usual control characters and quotes, \u escapes
// for everything else outside printable ASCII.
func EscapeJavaStyle(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '\b':
			b.WriteString(`\b`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		case '\'', '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			if r >= 32 && r < 0x7f {
				b.WriteRune(r)
			} else {
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
