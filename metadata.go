package rowset

import (
	"fmt"
	"log"
	"strings"
)

// Decoder converts one raw driver value into its decoded form. A nil Decoder
// is the pass-through decoder: the raw value is used unchanged. Decoder
// failures are not intercepted by this package; they surface to the caller
// of the fetch method that constructed the row.
type Decoder func(raw any) (any, error)

// DeclaredColumn is one result column as determined by the statement
// compiler before execution.
type DeclaredColumn struct {
	// Key is the primary string key callers use to address the column.
	Key string

	// Name is the rendered name expected to appear in the driver's raw
	// column descriptor.
	Name string

	// Objects holds the alternate lookup keys the column is known by: the
	// original declaring column object, its label, and any alias names.
	// Values must be comparable; string elements participate in loose name
	// matching.
	Objects []any

	// Type is the column's logical type, handed to the dialect's decoder
	// lookup.
	Type any
}

// Descriptor is the (name, type code) pair a driver reports for one output
// column after execution.
type Descriptor struct {
	Name     string
	TypeCode string
}

// DialectRules carries the dialect's name handling and decoder policies.
// The zero value is usable: case-insensitive matching, no normalization or
// translation, pass-through decoders.
type DialectRules struct {
	// CaseSensitive disables case folding of string lookup keys.
	CaseSensitive bool

	// NormalizeName adjusts a raw descriptor name to the dialect's casing
	// convention, e.g. lowercasing Oracle's uppercase names.
	NormalizeName func(string) string

	// TranslateName rewrites a raw descriptor name, returning the
	// translated name and the original. The original stays addressable as
	// an alias key. Used by dialects that mangle names, such as sqlite's
	// "table.column" descriptors.
	TranslateName func(string) (translated, untranslated string)

	// DecoderFor returns the value decoder for a column given its logical
	// type and the driver's raw type code. A nil function, or a nil
	// return, selects the pass-through decoder.
	DecoderFor func(logicalType any, name string, typeCode string) Decoder

	// Warnf receives warning-level diagnostics. Defaults to log.Printf.
	Warnf func(format string, args ...any)
}

func (r DialectRules) fold(s string) string {
	if r.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

func (r DialectRules) warnf(format string, args ...any) {
	if r.Warnf != nil {
		r.Warnf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// colName runs a raw descriptor name through the dialect's translation and
// normalization pipeline. untranslated is empty when no translation applied.
func (r DialectRules) colName(raw string) (name, untranslated string) {
	name = raw
	if r.TranslateName != nil {
		name, untranslated = r.TranslateName(name)
		if untranslated == name {
			untranslated = ""
		}
	}
	if r.NormalizeName != nil {
		name = r.NormalizeName(name)
	}
	return name, untranslated
}

// ResolveOptions describes how authoritative the declared column list is.
type ResolveOptions struct {
	// Ordered is set when the declared columns were generated by the
	// compiler in statement order, making positional matching possible.
	Ordered bool

	// TextualOrdered is set when a textual statement declared an explicit
	// ordered subset of the columns it will return.
	TextualOrdered bool

	// LooseNameMatching lets a raw column name match any string alias of a
	// declared column, not only its rendered name.
	LooseNameMatching bool
}

// rec is the resolved record for one lookup key. An ambiguous key keeps the
// sentinel index -1 and raises on every read.
type rec struct {
	index   int
	key     string
	decoder Decoder
}

const ambiguous = -1

// RowMetadata is the resolved, immutable mapping from every valid lookup key
// to a result column. One instance is shared read-only by every row produced
// under it and, optionally, by a cache keyed on the statement's cache key.
type RowMetadata struct {
	keys          []string
	keymap        map[any]*rec
	decoders      []Decoder
	translated    []int
	caseSensitive bool
	returnsRows   bool
}

// mergedCol is one raw column merged with its declared counterpart, before
// the keymap is assembled.
type mergedCol struct {
	index        int
	lookupKey    string
	renderedName string
	objects      []any
	decoder      Decoder
	untranslated string
}

// ResolveMetadata merges compiler-declared columns with the driver's raw
// column descriptors into one keymap, choosing the first applicable of four
// strategies: pure positional, textual positional, name-based, and
// none (no declared columns).
func ResolveMetadata(declared []DeclaredColumn, opts ResolveOptions, descriptors []Descriptor, rules DialectRules) (*RowMetadata, error) {
	m := &RowMetadata{
		keymap:        map[any]*rec{},
		caseSensitive: rules.CaseSensitive,
		returnsRows:   true,
	}

	var merged []mergedCol
	var err error
	switch {
	case len(declared) > 0 && opts.Ordered && !opts.TextualOrdered && len(declared) == len(descriptors):
		merged = m.mergePurePositional(declared, descriptors, rules)
	case len(declared) > 0 && opts.TextualOrdered:
		merged, err = m.mergeTextualByPosition(declared, descriptors, rules)
		if err != nil {
			return nil, err
		}
	case len(declared) > 0:
		merged = m.mergeByName(declared, descriptors, rules, opts.LooseNameMatching)
	default:
		merged = m.mergeByNone(descriptors, rules)
	}

	m.decoders = make([]Decoder, len(merged))
	for i := range merged {
		m.decoders[i] = merged[i].decoder
	}
	m.buildKeymap(merged, len(declared) > 0, rules)
	return m, nil
}

// mergePurePositional is the fast path: declared order is authoritative and
// matches the descriptor count, so descriptor names are never read.
func (m *RowMetadata) mergePurePositional(declared []DeclaredColumn, descriptors []Descriptor, rules DialectRules) []mergedCol {
	merged := make([]mergedCol, len(declared))
	m.keys = make([]string, len(declared))
	for i, col := range declared {
		m.keys[i] = col.Key
		merged[i] = mergedCol{
			index:        i,
			lookupKey:    rules.fold(col.Key),
			renderedName: rules.fold(col.Name),
			objects:      col.Objects,
			decoder:      lookupDecoder(rules, col.Type, col.Name, descriptors[i].TypeCode),
		}
	}
	return merged
}

// mergeTextualByPosition matches the first len(declared) raw columns to the
// declared list by position. Raw columns past the declared count become
// plain pass-through columns keyed only by their descriptor name.
func (m *RowMetadata) mergeTextualByPosition(declared []DeclaredColumn, descriptors []Descriptor, rules DialectRules) ([]mergedCol, error) {
	if len(declared) > len(descriptors) {
		rules.warnf("rowset: %d columns in raw result is fewer than %d columns declared in textual statement",
			len(descriptors), len(declared))
	}
	seen := map[any]bool{}
	merged := make([]mergedCol, len(descriptors))
	m.keys = make([]string, len(descriptors))
	for i, d := range descriptors {
		name, untranslated := rules.colName(d.Name)
		m.keys[i] = name
		mc := mergedCol{
			index:        i,
			lookupKey:    rules.fold(name),
			renderedName: rules.fold(name),
			untranslated: untranslated,
		}
		if i < len(declared) {
			col := declared[i]
			if len(col.Objects) > 0 {
				if seen[col.Objects[0]] {
					return nil, fmt.Errorf("duplicate column expression %q requested in textual statement", col.Key)
				}
				seen[col.Objects[0]] = true
			}
			mc.objects = col.Objects
			mc.decoder = lookupDecoder(rules, col.Type, name, d.TypeCode)
		}
		merged[i] = mc
	}
	return merged, nil
}

// matchTarget is a name-matching candidate built from the declared columns.
type matchTarget struct {
	objects []any
	typ     any
}

// mergeByName is used when declared columns exist but position is not
// authoritative: each raw descriptor name is looked up against the declared
// columns' rendered names, and, with loose matching, their string aliases.
func (m *RowMetadata) mergeByName(declared []DeclaredColumn, descriptors []Descriptor, rules DialectRules, loose bool) []mergedCol {
	match := map[string]*matchTarget{}
	for i := range declared {
		col := &declared[i]
		key := rules.fold(col.Name)
		if existing, ok := match[key]; ok {
			// Conflicting rendered name: pool the linked objects so that
			// each of them resolves to an ambiguous record later.
			existing.objects = append(existing.objects, col.Objects...)
		} else {
			match[key] = &matchTarget{objects: col.Objects, typ: col.Type}
		}
		if loose {
			for _, obj := range col.Objects {
				alias, ok := obj.(string)
				if !ok {
					continue
				}
				alias = rules.fold(alias)
				if _, ok := match[alias]; !ok {
					match[alias] = &matchTarget{objects: col.Objects, typ: col.Type}
				}
			}
		}
	}

	merged := make([]mergedCol, len(descriptors))
	m.keys = make([]string, len(descriptors))
	for i, d := range descriptors {
		name, untranslated := rules.colName(d.Name)
		m.keys[i] = name
		folded := rules.fold(name)
		mc := mergedCol{
			index:        i,
			lookupKey:    folded,
			renderedName: folded,
			untranslated: untranslated,
		}
		if target, ok := match[folded]; ok {
			mc.objects = target.objects
			mc.decoder = lookupDecoder(rules, target.typ, name, d.TypeCode)
		}
		merged[i] = mc
	}
	return merged
}

// mergeByNone handles ad hoc textual statements with no declared columns at
// all: every raw column becomes its own pass-through key.
func (m *RowMetadata) mergeByNone(descriptors []Descriptor, rules DialectRules) []mergedCol {
	merged := make([]mergedCol, len(descriptors))
	m.keys = make([]string, len(descriptors))
	for i, d := range descriptors {
		name, untranslated := rules.colName(d.Name)
		m.keys[i] = name
		folded := rules.fold(name)
		merged[i] = mergedCol{
			index:        i,
			lookupKey:    folded,
			renderedName: folded,
			untranslated: untranslated,
		}
	}
	return merged
}

// buildKeymap assembles the lookup table. Ambiguity is computed from the
// whole merged list before any per-column record is inserted, so the result
// never depends on iteration order: a key associated with more than one
// positional index is permanently ambiguous no matter which column is read.
func (m *RowMetadata) buildKeymap(merged []mergedCol, hasDeclared bool, rules DialectRules) {
	indexByKey := map[any]int{}
	dupes := map[any]bool{}
	for i := range merged {
		mc := &merged[i]
		for _, key := range mc.allKeys(rules) {
			if prev, ok := indexByKey[key]; ok {
				if prev != mc.index {
					dupes[key] = true
				}
			} else {
				indexByKey[key] = mc.index
			}
		}
	}

	if hasDeclared {
		// Secondary object keys first, excluding dupes.
		for i := range merged {
			mc := &merged[i]
			r := &rec{index: mc.index, key: m.keys[mc.index], decoder: mc.decoder}
			for _, obj := range mc.objects {
				key := foldKey(obj, rules)
				if !dupes[key] {
					m.keymap[key] = r
				}
			}
		}
	}

	// Primary string keys take precedence over object keys.
	for i := range merged {
		mc := &merged[i]
		if !dupes[mc.lookupKey] {
			m.keymap[mc.lookupKey] = &rec{index: mc.index, key: m.keys[mc.index], decoder: mc.decoder}
		}
	}

	// Ambiguous records override everything.
	for key := range dupes {
		m.keymap[key] = &rec{index: ambiguous, key: printableKey(key)}
	}

	// Untranslated raw names remain addressable as aliases.
	for i := range merged {
		mc := &merged[i]
		if mc.untranslated == "" {
			continue
		}
		if r, ok := m.keymap[mc.lookupKey]; ok {
			m.keymap[rules.fold(mc.untranslated)] = r
		}
	}
}

// allKeys returns every lookup key the column answers to, folded, for the
// whole-list ambiguity pass.
func (mc *mergedCol) allKeys(rules DialectRules) []any {
	keys := make([]any, 0, len(mc.objects)+2)
	keys = append(keys, mc.lookupKey)
	if mc.renderedName != mc.lookupKey {
		keys = append(keys, mc.renderedName)
	}
	for _, obj := range mc.objects {
		keys = append(keys, foldKey(obj, rules))
	}
	return keys
}

func foldKey(key any, rules DialectRules) any {
	if s, ok := key.(string); ok {
		return rules.fold(s)
	}
	return key
}

func printableKey(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", key)
}

func lookupDecoder(rules DialectRules, logicalType any, name, typeCode string) Decoder {
	if rules.DecoderFor == nil {
		return nil
	}
	return rules.DecoderFor(logicalType, name, typeCode)
}

// Keys returns the declared keys in result order. It returns nil for
// metadata of a statement that does not return rows.
func (m *RowMetadata) Keys() []string {
	return m.keys
}

// ReturnsRows reports whether the statement this metadata was resolved for
// produces rows at all.
func (m *RowMetadata) ReturnsRows() bool {
	return m.returnsRows
}

// Len returns the number of result columns.
func (m *RowMetadata) Len() int {
	return len(m.keys)
}

func (m *RowMetadata) errNoReturn() error {
	return fmt.Errorf("statement does not return rows: %w", ErrResourceClosed)
}

// recForKey resolves any valid key form to its record. Integer keys address
// positions directly and never consult the keymap.
func (m *RowMetadata) recForKey(key any) (*rec, error) {
	if !m.returnsRows {
		return nil, m.errNoReturn()
	}
	if i, ok := key.(int); ok {
		if i < 0 {
			i += len(m.keys)
		}
		if i < 0 || i >= len(m.keys) {
			return nil, fmt.Errorf("index %v out of range: %w", key, ErrNoSuchColumn)
		}
		var dec Decoder
		if i < len(m.decoders) {
			dec = m.decoders[i]
		}
		return &rec{index: i, key: m.keys[i], decoder: dec}, nil
	}
	r, ok := m.keymap[m.foldAny(key)]
	if !ok {
		return nil, fmt.Errorf("could not locate column for key %q: %w", printableKey(key), ErrNoSuchColumn)
	}
	if r.index == ambiguous {
		return nil, fmt.Errorf("column name %q matches more than one result column: %w", r.key, ErrAmbiguousColumn)
	}
	return r, nil
}

func (m *RowMetadata) foldAny(key any) any {
	if s, ok := key.(string); ok && !m.caseSensitive {
		return strings.ToLower(s)
	}
	return key
}

// IndexForKey returns the position a key resolves to.
func (m *RowMetadata) IndexForKey(key any) (int, error) {
	r, err := m.recForKey(key)
	if err != nil {
		return 0, err
	}
	return r.index, nil
}

// HasKey reports whether key resolves to a column, ambiguous ones included.
func (m *RowMetadata) HasKey(key any) bool {
	if !m.returnsRows {
		return false
	}
	if i, ok := key.(int); ok {
		if i < 0 {
			i += len(m.keys)
		}
		return i >= 0 && i < len(m.keys)
	}
	_, ok := m.keymap[m.foldAny(key)]
	return ok
}

// Reduce projects the metadata onto a subset of its columns, in the order
// given. Rows built under the reduced metadata contain only the selected
// values; keys may be any valid key form.
func (m *RowMetadata) Reduce(keys ...any) (*RowMetadata, error) {
	if !m.returnsRows {
		return nil, m.errNoReturn()
	}
	reduced := &RowMetadata{
		keys:          make([]string, len(keys)),
		keymap:        map[any]*rec{},
		decoders:      make([]Decoder, len(keys)),
		translated:    make([]int, len(keys)),
		caseSensitive: m.caseSensitive,
		returnsRows:   true,
	}
	for i, key := range keys {
		r, err := m.recForKey(key)
		if err != nil {
			return nil, err
		}
		raw := r.index
		if m.translated != nil {
			raw = m.translated[r.index]
		}
		reduced.keys[i] = r.key
		reduced.decoders[i] = r.decoder
		reduced.translated[i] = raw
		reduced.keymap[reduced.foldAny(r.key)] = &rec{index: i, key: r.key, decoder: r.decoder}
	}
	return reduced, nil
}

// Adapt re-points the declared-object keys at a structurally equivalent
// statement instance that was replayed against this cached metadata, without
// recomputing positional or name keys. The new columns are matched to the
// cached ones positionally.
func (m *RowMetadata) Adapt(newDeclared []DeclaredColumn) *RowMetadata {
	if len(newDeclared) == 0 {
		return m
	}
	adapted := &RowMetadata{
		keys:          m.keys,
		keymap:        make(map[any]*rec, len(m.keymap)+len(newDeclared)),
		decoders:      m.decoders,
		translated:    m.translated,
		caseSensitive: m.caseSensitive,
		returnsRows:   m.returnsRows,
	}
	for k, v := range m.keymap {
		adapted.keymap[k] = v
	}
	for i, col := range newDeclared {
		if i >= len(m.keys) {
			break
		}
		r, ok := m.keymap[m.foldAny(m.keys[i])]
		if !ok {
			continue
		}
		for _, obj := range col.Objects {
			adapted.keymap[foldKeyCase(obj, m.caseSensitive)] = r
		}
	}
	return adapted
}

func foldKeyCase(key any, caseSensitive bool) any {
	if s, ok := key.(string); ok && !caseSensitive {
		return strings.ToLower(s)
	}
	return key
}

// MetadataSnapshot is the serializable form of a RowMetadata: the index-only
// keymap with declared-object keys dropped, since those cannot cross a
// serialization boundary. Index -1 marks a key that was ambiguous.
type MetadataSnapshot struct {
	Keys          []string       `json:"keys"`
	Index         map[string]int `json:"index"`
	CaseSensitive bool           `json:"case_sensitive"`
	Translated    []int          `json:"translated,omitempty"`
}

// Freeze degrades the metadata to its serializable snapshot.
func (m *RowMetadata) Freeze() *MetadataSnapshot {
	snap := &MetadataSnapshot{
		Keys:          m.keys,
		Index:         make(map[string]int, len(m.keymap)),
		CaseSensitive: m.caseSensitive,
		Translated:    m.translated,
	}
	for k, r := range m.keymap {
		if s, ok := k.(string); ok {
			snap.Index[s] = r.index
		}
	}
	return snap
}

// RestoreMetadata rebuilds metadata from a snapshot. All decoders are
// pass-through: values carried across a serialization boundary were decoded
// before freezing.
func RestoreMetadata(snap *MetadataSnapshot) *RowMetadata {
	m := &RowMetadata{
		keys:          snap.Keys,
		keymap:        make(map[any]*rec, len(snap.Index)),
		decoders:      make([]Decoder, len(snap.Keys)),
		translated:    snap.Translated,
		caseSensitive: snap.CaseSensitive,
		returnsRows:   true,
	}
	for key, index := range snap.Index {
		m.keymap[key] = &rec{index: index, key: key}
	}
	return m
}

// noResultMetadata is the shared metadata for statements that never return
// rows; every read through it reports ErrResourceClosed.
var noResultMetadata = &RowMetadata{returnsRows: false}
