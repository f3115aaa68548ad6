package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	apperrors "sunpoll/pkg/errors"
)

// Parse decodes raw into a generic tree. Numbers stay json.Number so integer
// counters keep full precision until they are coerced. The root must be an object.
func Parse(raw []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, apperrors.ErrParse.WithCause(err).WithMessage("payload is not valid JSON")
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.ErrParse.WithMessage("unexpected data after the JSON document")
	}

	obj, ok := tree.(map[string]interface{})
	if !ok {
		return nil, apperrors.ErrParse.
			WithMessage("top-level JSON value is %s, want object", describe(tree)).
			WithDetail("type", describe(tree))
	}

	return obj, nil
}

func describe(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, float32, int, int64, int32:
		return "number"
	default:
		return "unknown"
	}
}
