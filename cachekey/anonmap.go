package cachekey

import "strconv"

// AnonMap assigns small counter-derived names to objects by identity.
// It lives for a single key generation or comparison pass and is never
// shared across calls. It also carries the "uncacheable" sentinel that an
// Unknown visit sets.
type AnonMap struct {
	names       map[any]string
	index       int
	uncacheable bool
}

// NewAnonMap returns an empty map ready for one traversal.
func NewAnonMap() *AnonMap {
	return &AnonMap{names: map[any]string{}}
}

// NameFor returns the name assigned to obj, assigning the next counter value
// on first sight. The second return reports whether obj had been seen
// before. Objects are compared by identity: two distinct pointers with equal
// contents get distinct names.
func (m *AnonMap) NameFor(obj any) (name string, seen bool) {
	if name, ok := m.names[obj]; ok {
		return name, true
	}
	name = strconv.Itoa(m.index)
	m.index++
	m.names[obj] = name
	return name, false
}

// MarkUncacheable poisons the current pass. Generation carries on so that
// traversal side effects stay deterministic, but the resulting key is
// discarded.
func (m *AnonMap) MarkUncacheable() {
	m.uncacheable = true
}

// Uncacheable reports whether the pass was poisoned.
func (m *AnonMap) Uncacheable() bool {
	return m.uncacheable
}
