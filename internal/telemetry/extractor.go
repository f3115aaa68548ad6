package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "sunpoll/pkg/errors"
)

// Extractor walks a schema's field specs over a parsed payload. It is lenient
// about representation (numeric strings, floats for integer fields) and strict
// about presence: any missing or unusable field rejects the whole record.
type Extractor struct {
	schema Schema
}

func NewExtractor(schema Schema) (*Extractor, error) {
	if err := schema.Check(); err != nil {
		return nil, apperrors.ErrConfig.WithCause(err).WithMessage("invalid schema %q", schema.Name)
	}
	return &Extractor{schema: schema}, nil
}

func (e *Extractor) Schema() Schema {
	return e.schema
}

func (e *Extractor) Extract(tree map[string]interface{}) (*Record, error) {
	fields := make([]Field, 0, len(e.schema.Fields))

	for _, spec := range e.schema.Fields {
		value, err := extractField(tree, spec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: spec.Name, Value: value})
	}

	return NewRecord(fields...)
}

func extractField(tree map[string]interface{}, spec FieldSpec) (interface{}, error) {
	fail := func(format string, args ...interface{}) *apperrors.Error {
		return apperrors.ErrExtraction.
			WithMessage("field %q at %s: %s", spec.Name, strings.Join(spec.Path, "."), fmt.Sprintf(format, args...)).
			WithDetail("field", spec.Name).
			WithDetail("path", strings.Join(spec.Path, "."))
	}

	node, err := resolve(tree, spec.Path)
	if err != nil {
		return nil, fail("%v", err)
	}

	if isNull(node) {
		if spec.Null == NullAsZero {
			return zero(spec.Kind), nil
		}
		return nil, fail("value is null")
	}

	value, err := coerce(node, spec.Kind)
	if err != nil {
		return nil, fail("%v", err).WithDetail("value", node)
	}
	return value, nil
}

// resolve follows path from root. An explicit null at the final element is
// returned as nil; a null or scalar in the middle of the path is an error.
func resolve(root interface{}, path []string) (interface{}, error) {
	node := root

	for i, elem := range path {
		switch n := node.(type) {
		case map[string]interface{}:
			next, ok := n[elem]
			if !ok {
				return nil, fmt.Errorf("key %q not found", strings.Join(path[:i+1], "."))
			}
			node = next
		case []interface{}:
			idx, err := strconv.Atoi(elem)
			if err != nil {
				return nil, fmt.Errorf("%q is an array, element %q is not an index", strings.Join(path[:i], "."), elem)
			}
			if idx < 0 || idx >= len(n) {
				return nil, fmt.Errorf("index %d out of range at %q (len %d)", idx, strings.Join(path[:i], "."), len(n))
			}
			node = n[idx]
		default:
			where := "document root"
			if i > 0 {
				where = strings.Join(path[:i], ".")
			}
			return nil, fmt.Errorf("%s is %s, cannot descend into %q", where, describe(node), elem)
		}
	}

	return node, nil
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

func zero(kind Kind) interface{} {
	if kind == KindInt {
		return int64(0)
	}
	return float64(0)
}

// coerce converts a JSON scalar to int64 (truncating toward zero) or float64.
func coerce(v interface{}, kind Kind) (interface{}, error) {
	switch x := v.(type) {
	case json.Number:
		if kind == KindInt {
			if i, err := x.Int64(); err == nil {
				return i, nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range", x.String())
		}
		return fromFloat(f, kind)
	case float64:
		return fromFloat(x, kind)
	case float32:
		return fromFloat(float64(x), kind)
	case int:
		return fromInt(int64(x), kind), nil
	case int64:
		return fromInt(x, kind), nil
	case int32:
		return fromInt(int64(x), kind), nil
	case string:
		s := strings.TrimSpace(x)
		if kind == KindInt {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("string %q is not numeric", x)
		}
		return fromFloat(f, kind)
	default:
		return nil, fmt.Errorf("%s value is not numeric", describe(v))
	}
}

func fromFloat(f float64, kind Kind) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("value %v is not finite", f)
	}
	if kind == KindFloat {
		return f, nil
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return nil, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(t), nil
}

func fromInt(i int64, kind Kind) interface{} {
	if kind == KindFloat {
		return float64(i)
	}
	return i
}
