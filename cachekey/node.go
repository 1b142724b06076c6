package cachekey

// Visit enumerates the ways a construct attribute contributes to a cache key.
// Every construct type declares an ordered list of (attribute, Visit) pairs
// via [Node.Fields]; both key generation and structural comparison dispatch
// on the Visit value, never on runtime attribute names.
type Visit int

const (
	// Cacheable visits a nested construct that itself carries a traversal
	// specification.
	Cacheable Visit = iota

	// CacheableList visits an ordered list of nested constructs.
	CacheableList

	// CacheableTuples visits a list of fixed-size groups of nested
	// constructs, such as (expression, direction) pairs.
	CacheableTuples

	// Plain copies a comparable Go value into the key as-is.
	Plain

	// TypeKey records a type descriptor by its static affinity key rather
	// than by structural recursion.
	TypeKey

	// AnonName records a name that may be anonymously generated. Two
	// constructs that differ only in fresh-name numbering produce equal
	// keys.
	AnonName

	// UnorderedSet visits nested constructs whose order is not
	// significant.
	UnorderedSet

	// Bind extracts a literal value into the key's bind list instead of
	// embedding it in the key, so that statements differing only in
	// literal values share a key.
	Bind

	// Unknown marks the whole computation uncacheable. It never raises.
	Unknown
)

// Field is one entry of a construct's traversal specification. Get reads the
// attribute value from the construct; it is passed the node rather than
// closed over it so that a single Fields slice can be shared by every
// instance of a construct type.
type Field struct {
	Name  string
	Visit Visit
	Get   func(Node) any
}

// Node is a construct in a SQL expression tree that can participate in cache
// key generation and structural comparison.
//
// Implementations must use pointer receivers: node identity (pointer
// equality) is what the anonymization map interns on.
type Node interface {
	// Kind names the construct type, e.g. "select" or "binary".
	Kind() string

	// Fields returns the construct's traversal specification. The returned
	// slice must be the same for every instance of the construct type.
	Fields() []Field
}

// Type is a logical type descriptor. Types contribute only their affinity
// key to a cache key; two types with equal affinity keys are
// interchangeable for statement caching purposes.
type Type interface {
	AffinityKey() string
}

// Anonymous is a generated name. Distinct instances represent distinct fresh
// names; the same instance reached twice within one tree represents the same
// fresh name. Keys derived from it are stable across trees because the
// anonymization map assigns counter-derived tokens in traversal order.
type Anonymous struct {
	Prefix string
}

// Commuter is implemented by constructs whose operands may be reordered
// without changing meaning, such as AND/OR lists or a commutative binary
// operator. The structural comparator matches their nested operands as an
// unordered collection.
type Commuter interface {
	Node
	Commutes() bool
}

// Lineaged is implemented by column-like constructs that can recognize other
// constructs derived from a common ancestor. It is consulted only when the
// comparator runs in lineage mode.
type Lineaged interface {
	Node
	SharesLineage(other Node) bool
}
