// Package graph defines the typed property-graph schema model: scalar value
// types, properties and cardinalities, vertex and edge type definitions with
// parametric identifier templates, and the schema registry that owns the
// fixed catalog of types.
package graph

import (
	"fmt"
	"strconv"
	"time"
)

// ValueType represents the scalar types the bulk-load format understands.
type ValueType int

const (
	TypeBoolean ValueType = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
	TypeDate
)

// String returns the type name as it appears in serialized headers.
func (t ValueType) String() string {
	switch t {
	case TypeBoolean:
		return "Boolean"
	case TypeByte:
		return "Byte"
	case TypeShort:
		return "Short"
	case TypeInt:
		return "Int"
	case TypeLong:
		return "Long"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeDate:
		return "Date"
	default:
		return "unknown"
	}
}

// Day is a calendar date with no time component. Use it for Date properties
// that should render at day precision rather than second precision.
type Day struct {
	t time.Time
}

// NewDay creates a Day for the given calendar date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates a time to its calendar date.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Time returns the date at midnight UTC.
func (d Day) Time() time.Time { return d.t }

func (d Day) String() string { return d.t.Format("2006-01-02") }

// Validate checks that value is representable as this scalar type. It never
// coerces: a value of the wrong Go kind or out of range is an error naming
// the expected kind and the offending value.
func (t ValueType) Validate(value any) error {
	switch t {
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, not %T %v", value, value)
		}
	case TypeByte:
		return validateIntRange(value, "Byte", -(1 << 7), 1<<7)
	case TypeShort:
		return validateIntRange(value, "Short", -(1 << 15), 1<<15)
	case TypeInt:
		return validateIntRange(value, "Int", -(1 << 31), 1<<31)
	case TypeLong:
		if _, ok := intValue(value); !ok {
			return fmt.Errorf("expected Long integer, not %T %v", value, value)
		}
	case TypeFloat, TypeDouble:
		switch value.(type) {
		case float32, float64:
		default:
			return fmt.Errorf("expected float, not %T %v", value, value)
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, not %T %v", value, value)
		}
	case TypeDate:
		switch v := value.(type) {
		case Day:
		case time.Time:
			if v.Location() != time.UTC {
				return fmt.Errorf("expected datetime without zone, not %v", value)
			}
		default:
			return fmt.Errorf("expected Day or time.Time, not %T %v", value, value)
		}
	default:
		return fmt.Errorf("unknown value type %d", t)
	}
	return nil
}

// Format validates value and renders its canonical string form.
func (t ValueType) Format(value any) (string, error) {
	if err := t.Validate(value); err != nil {
		return "", err
	}
	switch t {
	case TypeBoolean:
		if value.(bool) {
			return "True", nil
		}
		return "False", nil
	case TypeByte, TypeShort, TypeInt, TypeLong:
		n, _ := intValue(value)
		return strconv.FormatInt(n, 10), nil
	case TypeFloat, TypeDouble:
		switch v := value.(type) {
		case float32:
			return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
		default:
			return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
		}
	case TypeString:
		return value.(string), nil
	case TypeDate:
		switch v := value.(type) {
		case Day:
			return v.String(), nil
		default:
			// datetimes render at second precision, zone dropped
			return v.(time.Time).Format("2006-01-02T15:04:05"), nil
		}
	}
	return "", fmt.Errorf("unknown value type %d", t)
}

// validateIntRange checks value is an integer in the half-open range
// [min, max).
func validateIntRange(value any, name string, min, max int64) error {
	n, ok := intValue(value)
	if !ok {
		return fmt.Errorf("expected %s integer, not %T %v", name, value, value)
	}
	if n < min || n >= max {
		return fmt.Errorf("expected %s in [%d, %d), not %v", name, min, max, value)
	}
	return nil
}

// intValue extracts an int64 from any signed integer kind. Floats and other
// kinds are rejected, never truncated.
func intValue(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
