package rowset

import (
	"fmt"
	"reflect"
)

// Row is one immutable result row: a fixed-length sequence of decoded values
// plus a non-owning reference to the shared metadata that resolves lookup
// keys. Values are decoded exactly once, at construction. Equality is
// defined purely over the decoded values, never over which metadata produced
// them.
type Row struct {
	meta   *RowMetadata
	values []any
}

// NewRow decodes one raw driver row under the given metadata. A decoder
// failure propagates unchanged.
func NewRow(meta *RowMetadata, raw []any) (*Row, error) {
	var values []any
	if meta.translated != nil {
		values = make([]any, len(meta.translated))
		for i, pos := range meta.translated {
			v, err := decodeValue(meta.decoders[i], raw[pos])
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
	} else {
		values = make([]any, len(raw))
		for i, v := range raw {
			var dec Decoder
			if i < len(meta.decoders) {
				dec = meta.decoders[i]
			}
			decoded, err := decodeValue(dec, v)
			if err != nil {
				return nil, err
			}
			values[i] = decoded
		}
	}
	return &Row{meta: meta, values: values}, nil
}

func decodeValue(dec Decoder, raw any) (any, error) {
	if dec == nil {
		return raw, nil
	}
	return dec(raw)
}

// Len returns the number of values in the row.
func (r *Row) Len() int {
	return len(r.values)
}

// Index returns the value at position i. It panics when i is out of range,
// matching slice semantics; use Get for a checked lookup.
func (r *Row) Index(i int) any {
	return r.values[i]
}

// Slice returns a copy of the values in [from, to).
func (r *Row) Slice(from, to int) []any {
	out := make([]any, to-from)
	copy(out, r.values[from:to])
	return out
}

// Get returns the value for any valid key form: integer position (negative
// counts from the end), case-folded name, or original declaring object.
func (r *Row) Get(key any) (any, error) {
	rec, err := r.meta.recForKey(key)
	if err != nil {
		return nil, err
	}
	return r.values[rec.index], nil
}

// Keys returns the declared keys, in result order.
func (r *Row) Keys() []string {
	return r.meta.Keys()
}

// Values returns a copy of the decoded values.
func (r *Row) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Equal reports whether both rows hold equal decoded values.
func (r *Row) Equal(other *Row) bool {
	return other != nil && reflect.DeepEqual(r.values, other.values)
}

func (r *Row) String() string {
	return fmt.Sprintf("%v", r.values)
}

// Mapping returns the mapping facade over the same metadata and values.
func (r *Row) Mapping() *RowMapping {
	return &RowMapping{row: r}
}

// RowMapping is a read-only mapping view over a row. It accepts string and
// declared-object keys only: bare integer keys are rejected to avoid
// ambiguity with positional access, which belongs to [Row].
type RowMapping struct {
	row *Row
}

// Item is one key/value pair of a mapping view.
type Item struct {
	Key   string
	Value any
}

// Get returns the value for a string or declared-object key.
func (m *RowMapping) Get(key any) (any, error) {
	if _, ok := key.(int); ok {
		return nil, fmt.Errorf("integer key %v not supported by mapping view, use Row for positional access: %w", key, ErrNoSuchColumn)
	}
	return m.row.Get(key)
}

// HasKey reports whether the mapping contains key. Integer keys always
// report false.
func (m *RowMapping) HasKey(key any) bool {
	if _, ok := key.(int); ok {
		return false
	}
	return m.row.meta.HasKey(key)
}

// Keys returns the declared keys, in result order.
func (m *RowMapping) Keys() []string {
	return m.row.Keys()
}

// Values returns the values in declared-key order.
func (m *RowMapping) Values() []any {
	return m.row.Values()
}

// Items returns the key/value pairs in declared-key order.
func (m *RowMapping) Items() []Item {
	keys := m.row.Keys()
	items := make([]Item, len(keys))
	for i, key := range keys {
		items[i] = Item{Key: key, Value: m.row.values[i]}
	}
	return items
}
