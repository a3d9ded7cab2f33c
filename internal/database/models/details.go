package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DetailEntry is one key/value pair in an alert's detail payload.
type DetailEntry struct {
	Key   string
	Value any
}

// Details is an ordered string-keyed map of JSON-compatible values. Policies
// attach free-form evidence here; keeping insertion order makes the rendered
// payload stable across scans so the upsert change-detection can compare it
// byte for byte.
type Details []DetailEntry

// Set appends the key or overwrites it in place if already present.
func (d *Details) Set(key string, value any) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, DetailEntry{Key: key, Value: value})
}

// Get returns the value for key and whether it is present.
func (d Details) Get(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// MarshalJSON renders a JSON object with keys in insertion order.
func (d Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("details: marshaling %q: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving the order keys appear in.
func (d *Details) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("details: expected JSON object, got %v", tok)
	}

	out := Details{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("details: expected string key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("details: decoding value for %q: %w", key, err)
		}
		out = append(out, DetailEntry{Key: key, Value: value})
	}
	*d = out
	return nil
}

// Value implements driver.Valuer so Details persists as a jsonb/text column.
func (d Details) Value() (driver.Value, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for reading back from the database.
func (d *Details) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("details: expected string or []byte, got %T", value)
	}
}

// Equal reports whether two detail payloads render to the same JSON.
func (d Details) Equal(other Details) bool {
	a, err := d.MarshalJSON()
	if err != nil {
		return false
	}
	b, err := other.MarshalJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
