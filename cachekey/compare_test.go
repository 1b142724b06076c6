package cachekey_test

import (
	"github.com/rowset/rowset/cachekey"

	. "gopkg.in/check.v1"
)

type compareSuite struct{}

var _ = Suite(&compareSuite{})

func (s *compareSuite) TestStructuralEquivalence(c *C) {
	c.Assert(cachekey.Compare(selectFrom("person", 1), selectFrom("person", 1)), Equals, true)
	c.Assert(cachekey.Compare(selectFrom("person", 1), selectFrom("address", 1)), Equals, false)
	c.Assert(cachekey.Compare(col("a", intType{}), col("b", intType{})), Equals, false)
	c.Assert(cachekey.Compare(col("a", intType{}), &table{name: "a"}), Equals, false)
}

func (s *compareSuite) TestTypeComparedByAffinity(c *C) {
	c.Assert(cachekey.Compare(col("a", intType{}), col("a", bigIntType{})), Equals, true)
	c.Assert(cachekey.Compare(col("a", intType{}), col("a", textType{})), Equals, false)
}

func (s *compareSuite) TestCommutativeOperandsMatchUnordered(c *C) {
	a, b := col("a", intType{}), col("b", intType{})
	plus := func(l, r cachekey.Node) *binary {
		return &binary{op: "+", left: l, right: r, commutative: true}
	}
	minus := func(l, r cachekey.Node) *binary {
		return &binary{op: "-", left: l, right: r}
	}

	c.Assert(cachekey.Compare(plus(a, b), plus(b, a)), Equals, true)
	c.Assert(cachekey.Compare(plus(a, b), plus(a, b)), Equals, true)
	c.Assert(cachekey.Compare(minus(a, b), minus(b, a)), Equals, false)
	c.Assert(cachekey.Compare(minus(a, b), minus(a, b)), Equals, true)

	// Operator text still matters even when operands commute.
	times := &binary{op: "*", left: a, right: b, commutative: true}
	c.Assert(cachekey.Compare(plus(a, b), times), Equals, false)
}

func (s *compareSuite) TestAssociativeClausesMatchAsMultiset(c *C) {
	a, b, x := col("a", intType{}), col("b", intType{}), col("x", intType{})
	and := func(clauses ...cachekey.Node) *clauseList {
		return &clauseList{op: "and", clauses: clauses, associative: true}
	}
	ordered := func(clauses ...cachekey.Node) *clauseList {
		return &clauseList{op: "concat", clauses: clauses}
	}

	c.Assert(cachekey.Compare(and(a, b, x), and(x, a, b)), Equals, true)
	c.Assert(cachekey.Compare(and(a, a, b), and(a, b, b)), Equals, false)
	c.Assert(cachekey.Compare(and(a, b), and(a, b, x)), Equals, false)
	c.Assert(cachekey.Compare(ordered(a, b), ordered(b, a)), Equals, false)
}

func (s *compareSuite) TestBindValues(c *C) {
	eq := func(v any) *binary {
		return &binary{op: "=", left: col("a", intType{}), right: &bindParam{value: v}}
	}
	c.Assert(cachekey.Compare(eq(1), eq(1)), Equals, true)
	c.Assert(cachekey.Compare(eq(1), eq(2)), Equals, false)
	c.Assert(cachekey.Compare(eq(1), eq(2), cachekey.WithoutBindValues()), Equals, true)
	c.Assert(cachekey.Compare(eq(1), eq("1"), cachekey.WithoutBindValues()), Equals, true)
}

func (s *compareSuite) TestLineage(c *C) {
	base := col("a", intType{})
	derived := &column{name: "a_1", typ: intType{}, origin: base}
	unrelated := col("z", intType{})

	c.Assert(cachekey.Compare(base, derived), Equals, false)
	c.Assert(cachekey.Compare(base, derived, cachekey.WithLineage()), Equals, true)
	c.Assert(cachekey.Compare(base, unrelated, cachekey.WithLineage()), Equals, false)

	// Lineage applies at any depth of the tree.
	left := &binary{op: "=", left: base, right: &bindParam{value: 1}}
	right := &binary{op: "=", left: derived, right: &bindParam{value: 1}}
	c.Assert(cachekey.Compare(left, right), Equals, false)
	c.Assert(cachekey.Compare(left, right, cachekey.WithLineage()), Equals, true)
}

func (s *compareSuite) TestAnonymousNamesCorrespondByIdentity(c *C) {
	named := func(names ...any) *selectStmt {
		cols := make([]cachekey.Node, len(names))
		for i, n := range names {
			cols[i] = &column{name: n, typ: intType{}}
		}
		return &selectStmt{columns: cols}
	}
	anonA := &cachekey.Anonymous{Prefix: "anon"}
	anonB := &cachekey.Anonymous{Prefix: "anon"}
	anonC := &cachekey.Anonymous{Prefix: "anon"}

	// Fresh anonymous names on each side correspond positionally.
	c.Assert(cachekey.Compare(named(anonA, anonB), named(anonC, anonB)), Equals, true)
	// A shared instance on one side versus distinct instances on the other
	// breaks the correspondence.
	c.Assert(cachekey.Compare(named(anonA, anonA), named(anonB, anonC)), Equals, false)
	// An anonymous name never corresponds to an explicit string name.
	c.Assert(cachekey.Compare(named(anonA), named("a")), Equals, false)
}

func (s *compareSuite) TestUnknownStructureNeverEqual(c *C) {
	c.Assert(cachekey.Compare(&mystery{payload: 1}, &mystery{payload: 1}), Equals, false)

	left := selectFrom("person", 1)
	right := selectFrom("person", 1)
	left.columns = append(left.columns, &mystery{payload: 1})
	right.columns = append(right.columns, &mystery{payload: 1})
	c.Assert(cachekey.Compare(left, right), Equals, false)
}

func (s *compareSuite) TestUnorderedSetField(c *C) {
	build := func(names ...string) *selectStmt {
		from := make([]cachekey.Node, len(names))
		for i, n := range names {
			from[i] = &table{name: n}
		}
		return &selectStmt{columns: nodes(col("a", intType{})), from: from}
	}
	c.Assert(cachekey.Compare(build("person", "address"), build("address", "person")), Equals, true)
	c.Assert(cachekey.Compare(build("person", "address"), build("person", "account")), Equals, false)
	c.Assert(cachekey.Compare(build("person"), build("person", "address")), Equals, false)
}

func (s *compareSuite) TestTupleGroups(c *C) {
	build := func(dirs ...string) *orderBy {
		criteria := make([][]cachekey.Node, len(dirs))
		for i, d := range dirs {
			criteria[i] = nodes(col("a", intType{}), &direction{dir: d})
		}
		return &orderBy{criteria: criteria}
	}
	c.Assert(cachekey.Compare(build("asc", "desc"), build("asc", "desc")), Equals, true)
	c.Assert(cachekey.Compare(build("asc", "desc"), build("desc", "asc")), Equals, false)
	c.Assert(cachekey.Compare(build("asc"), build("asc", "desc")), Equals, false)
}

func (s *compareSuite) TestSameInstanceTriviallyEqual(c *C) {
	stmt := selectFrom("person", 1)
	c.Assert(cachekey.Compare(stmt, stmt), Equals, true)
}
