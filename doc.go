/*
Package rowset is the execution-result layer of a SQL toolkit: it merges a
compiled statement's declared output columns with the raw column descriptors
a database driver reports, decodes raw rows into immutable, multiply
addressable values, and manages how rows are pulled from the live driver
cursor.

A compiler hands rowset its declared columns and a driver adapter hands it a
[Cursor]; [NewResult] resolves the two into shared [RowMetadata], choosing
the cheapest applicable matching strategy (purely positional for compiled
constructs, positional or name-based for textual statements, descriptor-only
for ad hoc SQL). Colliding column names are detected up front and reads
through them report ErrAmbiguousColumn rather than silently mis-mapping
data.

Rows come back through a forward-only, single-pass [Result]:

	res, err := rowset.NewResult(rowset.ExecutedStatement{
		Cursor:   cursor,
		Declared: declared,
		Options:  rowset.ResolveOptions{Ordered: true},
	})
	if err != nil {
		...
	}
	for {
		row, err := res.FetchOne()
		if err != nil || row == nil {
			break
		}
		id, _ := row.Get("id")
		...
	}

Exhausting a result releases the driver cursor automatically ("soft close")
while keeping the result readable; Close is terminal. Large results can
stream through a growth-buffered fetch strategy, or be fully pre-buffered
for drivers that cannot keep a cursor open.

Resolved metadata may be cached in a [MetadataCache] keyed by the
statement's structural cache key (see the cachekey package) and replayed
against structurally equivalent statements.
*/
package rowset
