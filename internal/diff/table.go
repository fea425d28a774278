package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is a string-keyed mapping that remembers insertion order.
// A nil *Table is a valid empty table for every read method.
type Table[V any] struct {
	keys   []string
	values map[string]V
}

func NewTable[V any]() *Table[V] {
	return &Table[V]{values: map[string]V{}}
}

// Set stores v under k. Overwriting keeps the key's original position.
func (t *Table[V]) Set(k string, v V) {
	if t.values == nil {
		t.values = map[string]V{}
	}
	if _, ok := t.values[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.values[k] = v
}

func (t *Table[V]) Get(k string) (V, bool) {
	if t == nil {
		var zero V
		return zero, false
	}
	v, ok := t.values[k]
	return v, ok
}

func (t *Table[V]) Has(k string) bool {
	_, ok := t.Get(k)
	return ok
}

func (t *Table[V]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns a copy of the keys in insertion order.
func (t *Table[V]) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Each calls fn for every entry in insertion order.
func (t *Table[V]) Each(fn func(k string, v V)) {
	if t == nil {
		return
	}
	for _, k := range t.keys {
		fn(k, t.values[k])
	}
}

// TableOf builds a table from entries, in order.
func TableOf[V any](entries ...Entry[V]) *Table[V] {
	t := NewTable[V]()
	for _, e := range entries {
		t.Set(e.Key, e.Value)
	}
	return t
}

// Entry is one key/value pair, used to build tables literally.
type Entry[V any] struct {
	Key   string
	Value V
}

func (t *Table[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(t.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping document order.
// Entries whose value is null are dropped: null and a missing key both mean absent.
func (t *Table[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = Table[V]{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("diff: expected JSON object, got %v", tok)
	}

	out := Table[V]{values: map[string]V{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("diff: expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("diff: value of %q: %w", key, err)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("diff: value of %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}
