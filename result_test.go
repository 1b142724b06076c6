package rowset_test

import (
	"errors"

	"github.com/rowset/rowset"
	"github.com/rowset/rowset/cachekey"

	. "gopkg.in/check.v1"
)

type resultSuite struct{}

var _ = Suite(&resultSuite{})

func (s *resultSuite) namedResult(c *C, rows [][]any, names ...string) *rowset.Result {
	cursor := &fakeCursor{desc: descriptors(names...), rows: rows}
	res, err := rowset.NewResult(rowset.ExecutedStatement{Cursor: cursor})
	c.Assert(err, IsNil)
	return res
}

func (s *resultSuite) TestFirst(c *C) {
	res := s.namedResult(c, [][]any{{1, "fred"}, {2, "mark"}}, "id", "name")
	row, err := res.First()
	c.Assert(err, IsNil)
	c.Assert(row.Values(), DeepEquals, []any{1, "fred"})

	// First consumes the result whole.
	c.Assert(res.Closed(), Equals, true)
	_, err = res.FetchOne()
	c.Assert(errors.Is(err, rowset.ErrResourceClosed), Equals, true)
}

func (s *resultSuite) TestFirstEmpty(c *C) {
	res := s.namedResult(c, nil, "id")
	_, err := res.First()
	c.Assert(errors.Is(err, rowset.ErrNoRows), Equals, true)
	c.Assert(res.Closed(), Equals, true)
}

func (s *resultSuite) TestScalar(c *C) {
	res := s.namedResult(c, [][]any{{5}}, "n")
	got, err := res.Scalar()
	c.Assert(err, IsNil)
	c.Assert(got, Equals, 5)
}

func (s *resultSuite) TestColumnsProjection(c *C) {
	res := s.namedResult(c, [][]any{{1, "fred", 30}, {2, "mark", 40}}, "id", "name", "age")
	_, err := res.Columns("name", "id")
	c.Assert(err, IsNil)
	c.Assert(res.Keys(), DeepEquals, []string{"name", "id"})

	rows, err := res.FetchAll()
	c.Assert(err, IsNil)
	c.Assert(rows, HasLen, 2)
	c.Assert(rows[0].Values(), DeepEquals, []any{"fred", 1})
	c.Assert(rows[1].Values(), DeepEquals, []any{"mark", 2})

	_, err = rows[0].Get("age")
	c.Assert(errors.Is(err, rowset.ErrNoSuchColumn), Equals, true)
}

func (s *resultSuite) TestColumnsUnknownKey(c *C) {
	res := s.namedResult(c, [][]any{{1}}, "id")
	_, err := res.Columns("nope")
	c.Assert(errors.Is(err, rowset.ErrNoSuchColumn), Equals, true)
}

func (s *resultSuite) TestMappings(c *C) {
	res := s.namedResult(c, [][]any{{1, "fred"}, {2, "mark"}}, "id", "name")
	maps := res.Mappings()

	m, err := maps.FetchOne()
	c.Assert(err, IsNil)
	got, err := m.Get("name")
	c.Assert(err, IsNil)
	c.Assert(got, Equals, "fred")

	rest, err := maps.FetchAll()
	c.Assert(err, IsNil)
	c.Assert(rest, HasLen, 1)
	c.Assert(rest[0].Items(), DeepEquals, []rowset.Item{
		{Key: "id", Value: 2},
		{Key: "name", Value: "mark"},
	})

	m, err = maps.FetchOne()
	c.Assert(err, IsNil)
	c.Assert(m, IsNil)
}

// stmtShape is a stand-in statement construct for cache-key generation.
type stmtShape struct {
	text string
}

var stmtShapeFields = []cachekey.Field{
	{Name: "text", Visit: cachekey.Plain, Get: func(n cachekey.Node) any {
		return n.(*stmtShape).text
	}},
}

func (t *stmtShape) Kind() string { return "stmt" }
func (t *stmtShape) Fields() []cachekey.Field { return stmtShapeFields }

func (s *resultSuite) TestMetadataCacheReuse(c *C) {
	cache := rowset.NewMetadataCache(10)
	execute := func(obj any) (*rowset.Result, *rowset.RowMetadata) {
		cursor := &fakeCursor{desc: descriptors("a"), rows: [][]any{{1}}}
		res, err := rowset.NewResult(rowset.ExecutedStatement{
			Cursor:   cursor,
			Declared: []rowset.DeclaredColumn{{Key: "a", Name: "a", Objects: []any{obj}}},
			Options:  rowset.ResolveOptions{Ordered: true},
			Key:      cachekey.Generate(&stmtShape{text: "SELECT a FROM t"}),
			Cache:    cache,
		})
		c.Assert(err, IsNil)
		return res, res.Metadata()
	}

	first := &colRef{"a"}
	_, meta1 := execute(first)
	c.Assert(cache.Len(), Equals, 1)

	// The replay resolves through the cache, adapted to its own declared
	// objects while keeping the original ones addressable.
	replay := &colRef{"a"}
	res2, meta2 := execute(replay)
	c.Assert(cache.Len(), Equals, 1)
	c.Assert(meta2, Not(Equals), meta1)
	for _, key := range []any{"a", first, replay} {
		i, err := meta2.IndexForKey(key)
		c.Assert(err, IsNil, Commentf("key %v", key))
		c.Assert(i, Equals, 0)
	}

	row, err := res2.FetchOne()
	c.Assert(err, IsNil)
	got, err := row.Get(replay)
	c.Assert(err, IsNil)
	c.Assert(got, Equals, 1)
}

func (s *resultSuite) TestUncacheableStatementSkipsCache(c *C) {
	cache := rowset.NewMetadataCache(10)
	cursor := &fakeCursor{desc: descriptors("a"), rows: [][]any{{1}}}
	res, err := rowset.NewResult(rowset.ExecutedStatement{
		Cursor: cursor,
		Key:    nil,
		Cache:  cache,
	})
	c.Assert(err, IsNil)
	c.Assert(cache.Len(), Equals, 0)

	row, err := res.FetchOne()
	c.Assert(err, IsNil)
	got, err := row.Get("a")
	c.Assert(err, IsNil)
	c.Assert(got, Equals, 1)
}
