package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldType is the declared type of a configuration field
type FieldType string

const (
	FieldColor   FieldType = "color"
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldRange   FieldType = "range"
	FieldBoolean FieldType = "boolean"
	FieldSelect  FieldType = "select"
)

// Numeric reports whether values of the type carry a unit when serialized
func (t FieldType) Numeric() bool {
	return t == FieldNumber || t == FieldRange
}

// Field describes a single configuration field
type Field struct {
	Key     string    `json:"-"`
	Type    FieldType `json:"type"`
	Label   string    `json:"label,omitempty"`
	Default any       `json:"default,omitempty"`
	CSSVar  string    `json:"cssVar,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Step    *float64  `json:"step,omitempty"`
	Unit    string    `json:"unit,omitempty"`
	Options []string  `json:"options,omitempty"`
}

// Schema is an ordered mapping of field name to descriptor.
// It round-trips as a JSON object whose key order is preserved.
type Schema []Field

// Field looks up a field by key
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Keys returns field names in declaration order
func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, f := range s {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON writes the schema as an object in declaration order
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of field descriptors keeping key order
func (s *Schema) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("config schema must be an object")
	}

	var fields Schema
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("config schema key must be a string")
		}

		var f Field
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("config field %q: %w", key, err)
		}
		f.Key = key
		fields = append(fields, f)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = fields
	return nil
}
