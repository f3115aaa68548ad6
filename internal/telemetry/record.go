// Package telemetry turns an inverter status document into a flat, validated
// record of numeric readings.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one named reading. Value is int64 or float64 once extracted; the
// validator rejects anything else.
type Field struct {
	Name  string
	Value interface{}
}

// Record is an ordered, immutable set of readings. Sinks derive their column
// and field lists from it, in this order.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from fields in the given order. Names must be
// non-empty and unique.
func NewRecord(fields ...Field) (*Record, error) {
	r := &Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("record field name must not be empty")
		}
		if _, dup := r.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate record field %q", f.Name)
		}
		r.index[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}

	return r, nil
}

func (r *Record) Len() int {
	return len(r.fields)
}

func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

func (r *Record) Values() []interface{} {
	values := make([]interface{}, len(r.fields))
	for i, f := range r.fields {
		values[i] = f.Value
	}
	return values
}

func (r *Record) Get(name string) (interface{}, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Fields returns a copy of the record's fields.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Map returns the readings keyed by name. Order is lost; use Fields or Names
// when it matters.
func (r *Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON encodes the record as an object whose keys keep record order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
