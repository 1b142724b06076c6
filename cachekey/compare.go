package cachekey

import (
	"fmt"
	"reflect"
)

// CompareOption configures a structural comparison.
type CompareOption func(*comparator)

// WithLineage makes column-like constructs that share a common ancestor
// compare equal, instead of requiring structural identity. Higher ORM-style
// layers use this to match a derived column against its source.
func WithLineage() CompareOption {
	return func(c *comparator) { c.lineage = true }
}

// WithoutBindValues compares statement shapes only, ignoring the literal
// values held by Bind fields.
func WithoutBindValues() CompareOption {
	return func(c *comparator) { c.skipBindValues = true }
}

// Compare reports whether two construct trees are structurally equivalent:
// same shape, same plain values, type descriptors with equal affinity keys,
// and anonymous names that correspond under identity renaming. Constructs
// that implement [Commuter] and commute have their nested operands matched
// as an unordered collection, so a AND b compares equal to b AND a.
//
// A tree containing an Unknown field never compares equal to anything,
// itself included.
func Compare(a, b Node, opts ...CompareOption) bool {
	c := newComparator(opts)
	return c.compare(a, b)
}

type nodePair struct {
	left, right Node
}

type comparator struct {
	opts           []CompareOption
	lineage        bool
	skipBindValues bool

	stack []nodePair
	cache map[nodePair]bool

	// One anonymization map per side, so that counter tokens are assigned
	// by each tree's own traversal order.
	leftAnon, rightAnon *AnonMap
}

func newComparator(opts []CompareOption) *comparator {
	c := &comparator{
		opts:      opts,
		cache:     map[nodePair]bool{},
		leftAnon:  NewAnonMap(),
		rightAnon: NewAnonMap(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *comparator) compare(a, b Node) bool {
	c.push(a, b)
	for len(c.stack) > 0 {
		pair := c.stack[0]
		c.stack = c.stack[1:]
		left, right := pair.left, pair.right

		if left == right {
			continue
		}
		if left == nil || right == nil {
			return false
		}
		if c.cache[pair] {
			continue
		}
		c.cache[pair] = true

		if c.lineage {
			if l, ok := left.(Lineaged); ok {
				if _, ok := right.(Lineaged); ok && l.SharesLineage(right) {
					continue
				}
			}
		}

		if left.Kind() != right.Kind() {
			return false
		}
		if !c.compareFields(left, right) {
			return false
		}
	}
	return true
}

// compareInner runs an independent comparison with fresh traversal state but
// the same options. Used for unordered matching where partial traversals
// must not pollute the parent's anonymization maps.
func (c *comparator) compareInner(a, b Node) bool {
	return newComparator(c.opts).compare(a, b)
}

func (c *comparator) push(l, r Node) {
	c.stack = append(c.stack, nodePair{l, r})
}

func (c *comparator) compareFields(left, right Node) bool {
	lf, rf := left.Fields(), right.Fields()
	if len(lf) != len(rf) {
		return false
	}

	unordered := false
	if lc, ok := left.(Commuter); ok && lc.Commutes() {
		if rc, ok := right.(Commuter); ok && rc.Commutes() {
			unordered = true
		}
	}

	// Operands of a commuting construct are pooled and matched without
	// regard to order; everything else is compared field by field.
	var leftPool, rightPool []Node

	for i := range lf {
		f, rfield := lf[i], rf[i]
		if f.Name != rfield.Name || f.Visit != rfield.Visit {
			return false
		}
		lv, rv := f.Get(left), rfield.Get(right)
		if lv == nil || rv == nil {
			if lv != nil || rv != nil {
				return false
			}
			continue
		}

		switch f.Visit {
		case Cacheable:
			lchild, lok := lv.(Node)
			rchild, rok := rv.(Node)
			if !lok || !rok {
				return false
			}
			if unordered {
				leftPool = append(leftPool, lchild)
				rightPool = append(rightPool, rchild)
			} else {
				c.push(lchild, rchild)
			}
		case CacheableList:
			lseq, lok := lv.([]Node)
			rseq, rok := rv.([]Node)
			if !lok || !rok || len(lseq) != len(rseq) {
				return false
			}
			if unordered {
				leftPool = append(leftPool, lseq...)
				rightPool = append(rightPool, rseq...)
			} else {
				for j := range lseq {
					c.push(lseq[j], rseq[j])
				}
			}
		case CacheableTuples:
			lgroups, lok := lv.([][]Node)
			rgroups, rok := rv.([][]Node)
			if !lok || !rok || len(lgroups) != len(rgroups) {
				return false
			}
			for j := range lgroups {
				if len(lgroups[j]) != len(rgroups[j]) {
					return false
				}
				for k := range lgroups[j] {
					c.push(lgroups[j][k], rgroups[j][k])
				}
			}
		case Plain:
			if !reflect.DeepEqual(lv, rv) {
				return false
			}
		case TypeKey:
			lt, lok := lv.(Type)
			rt, rok := rv.(Type)
			if !lok || !rok || lt.AffinityKey() != rt.AffinityKey() {
				return false
			}
		case AnonName:
			if c.resolveName(c.leftAnon, lv) != c.resolveName(c.rightAnon, rv) {
				return false
			}
		case UnorderedSet:
			lseq, lok := lv.([]Node)
			rseq, rok := rv.([]Node)
			if !lok || !rok {
				return false
			}
			if !c.unorderedEqual(lseq, rseq) {
				return false
			}
		case Bind:
			if !c.skipBindValues && !reflect.DeepEqual(lv, rv) {
				return false
			}
		case Unknown:
			return false
		}
	}

	if unordered && !c.unorderedEqual(leftPool, rightPool) {
		return false
	}
	return true
}

// unorderedEqual matches two sequences as multisets. Quadratic, but commuting
// operand lists are short in practice.
func (c *comparator) unorderedEqual(left, right []Node) bool {
	if len(left) != len(right) {
		return false
	}
	matched := make([]bool, len(right))
	for _, l := range left {
		found := false
		for j, r := range right {
			if matched[j] {
				continue
			}
			if c.compareInner(l, r) {
				matched[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *comparator) resolveName(anon *AnonMap, v any) string {
	switch name := v.(type) {
	case string:
		return name
	case *Anonymous:
		id, _ := anon.NameFor(name)
		return fmt.Sprintf("%%%s_%s", name.Prefix, id)
	default:
		return fmt.Sprintf("%v", v)
	}
}
