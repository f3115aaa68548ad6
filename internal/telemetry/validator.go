package telemetry

import (
	"math"

	apperrors "sunpoll/pkg/errors"
)

// Validate is the final gate before any sink sees the record: every value must
// be an integer or a finite float. The extractor already guarantees this, but
// the check stays independent of how the record was built.
func Validate(r *Record) error {
	if r == nil || r.Len() == 0 {
		return apperrors.ErrValidation.WithMessage("record is empty")
	}

	for _, f := range r.fields {
		if !isNumeric(f.Value) {
			return apperrors.ErrValidation.
				WithMessage("%s is not numeric. value: %v (%T)", f.Name, f.Value, f.Value).
				WithDetail("field", f.Name).
				WithDetail("value", f.Value)
		}
	}

	return nil
}

func isNumeric(v interface{}) bool {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	default:
		return false
	}
}
