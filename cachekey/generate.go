package cachekey

import (
	"fmt"
	"sort"
	"strings"
)

// Key is the structural fingerprint of a construct tree together with the
// literal values extracted during traversal. Two trees that would compile to
// the same SQL text up to literal values and identity-renaming of anonymous
// aliases produce equal keys; their literals are found, in traversal order,
// in Binds.
//
// Keys are immutable once generated and safe to use as cache map keys via
// String.
type Key struct {
	repr  string
	binds []any
}

// String returns the canonical form of the key. Two keys are equal exactly
// when their strings are equal.
func (k *Key) String() string {
	return k.repr
}

// Binds returns the literal values extracted during generation, in traversal
// order. The caller must not mutate the returned slice.
func (k *Key) Binds() []any {
	return k.binds
}

// Equal reports whether both keys fingerprint the same statement shape. Bind
// values are deliberately excluded.
func (k *Key) Equal(other *Key) bool {
	return other != nil && k.repr == other.repr
}

// Generate walks root and produces its cache key. It returns nil when any
// construct in the tree declares an Unknown field, meaning "do not cache
// this statement shape"; a nil key is not an error.
func Generate(root Node) *Key {
	g := &generator{anon: NewAnonMap()}
	var sb strings.Builder
	g.writeNode(&sb, root)
	if g.anon.Uncacheable() {
		return nil
	}
	return &Key{repr: sb.String(), binds: g.binds}
}

type generator struct {
	anon  *AnonMap
	binds []any
}

func (g *generator) writeNode(sb *strings.Builder, n Node) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	id, seen := g.anon.NameFor(n)
	if seen {
		// Identical object revisited: reference it by its interned name
		// instead of expanding it again.
		fmt.Fprintf(sb, "(^%s %s)", id, n.Kind())
		return
	}
	fmt.Fprintf(sb, "(%s %s", id, n.Kind())
	for _, f := range n.Fields() {
		g.writeField(sb, n, f)
	}
	sb.WriteByte(')')
}

func (g *generator) writeField(sb *strings.Builder, n Node, f Field) {
	v := f.Get(n)
	if v == nil && f.Visit != Bind && f.Visit != Unknown {
		return
	}
	switch f.Visit {
	case Cacheable:
		child, ok := v.(Node)
		if !ok {
			g.anon.MarkUncacheable()
			return
		}
		fmt.Fprintf(sb, " %s=", f.Name)
		g.writeNode(sb, child)
	case CacheableList:
		children, ok := v.([]Node)
		if !ok {
			g.anon.MarkUncacheable()
			return
		}
		if len(children) == 0 {
			return
		}
		fmt.Fprintf(sb, " %s=[", f.Name)
		for _, child := range children {
			g.writeNode(sb, child)
		}
		sb.WriteByte(']')
	case CacheableTuples:
		groups, ok := v.([][]Node)
		if !ok {
			g.anon.MarkUncacheable()
			return
		}
		if len(groups) == 0 {
			return
		}
		fmt.Fprintf(sb, " %s=[", f.Name)
		for _, group := range groups {
			sb.WriteByte('(')
			for _, child := range group {
				g.writeNode(sb, child)
			}
			sb.WriteByte(')')
		}
		sb.WriteByte(']')
	case Plain:
		// %#v carries the dynamic type, keeping e.g. int(1) distinct
		// from "1".
		fmt.Fprintf(sb, " %s=%#v", f.Name, v)
	case TypeKey:
		t, ok := v.(Type)
		if !ok {
			g.anon.MarkUncacheable()
			return
		}
		fmt.Fprintf(sb, " %s=type:%s", f.Name, t.AffinityKey())
	case AnonName:
		fmt.Fprintf(sb, " %s=%s", f.Name, g.resolveName(v))
	case UnorderedSet:
		children, ok := v.([]Node)
		if !ok {
			g.anon.MarkUncacheable()
			return
		}
		if len(children) == 0 {
			return
		}
		// Sub-keys are generated in traversal order, so bind extraction
		// and anonymization stay deterministic, then sorted so that
		// member order does not influence the key.
		subs := make([]string, len(children))
		for i, child := range children {
			var sub strings.Builder
			g.writeNode(&sub, child)
			subs[i] = sub.String()
		}
		sort.Strings(subs)
		fmt.Fprintf(sb, " %s={%s}", f.Name, strings.Join(subs, ""))
	case Bind:
		g.binds = append(g.binds, v)
		fmt.Fprintf(sb, " %s=?", f.Name)
	case Unknown:
		g.anon.MarkUncacheable()
	}
}

// resolveName renders an AnonName field value. Plain strings pass through;
// Anonymous names are replaced with their interned counter token.
func (g *generator) resolveName(v any) string {
	switch name := v.(type) {
	case string:
		return name
	case *Anonymous:
		id, _ := g.anon.NameFor(name)
		return fmt.Sprintf("%%%s_%s", name.Prefix, id)
	default:
		return fmt.Sprintf("%v", v)
	}
}
