// Package cachekey fingerprints SQL construct trees so that compiled
// artifacts can be reused across executions of structurally equivalent
// statements.
//
// A construct participates by implementing [Node]: it names its kind and
// declares an ordered traversal specification of (attribute, visitation
// kind) pairs. [Generate] walks the tree once, interning object identities
// in an [AnonMap] so that anonymous aliases compare by position rather than
// by generated name, and extracting literal values into the key's bind list
// so that statements differing only in literals share one key. [Compare]
// reuses the same traversal metadata to test two trees for structural
// equivalence without building keys, including unordered matching for
// commuting operators and an optional lineage mode.
package cachekey
