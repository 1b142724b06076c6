package rowset

import (
	"fmt"

	"github.com/rowset/rowset/cachekey"
)

// defaultMaxRowBuffer bounds the growth-buffered strategy's refill batch
// when the caller does not configure one.
const defaultMaxRowBuffer = 1000

// BufferOptions selects the buffering policy for a result.
type BufferOptions struct {
	// Stream enables the growth-buffered strategy: refills start at one
	// row and grow geometrically up to MaxRowBuffer.
	Stream bool

	// MaxRowBuffer caps a streaming refill batch. Zero means 1000.
	MaxRowBuffer int

	// GrowthFactor multiplies the refill size after each refill. Zero
	// means 5.
	GrowthFactor int

	// FullyBuffered drains the whole cursor into memory at construction,
	// for drivers whose connection cannot stay open across statement
	// boundaries.
	FullyBuffered bool
}

// ExecutedStatement carries everything the result layer needs about one
// executed statement: the live cursor from the driver adapter, the declared
// columns from the compiler, and optionally the statement's cache key and a
// metadata cache to consult.
type ExecutedStatement struct {
	Cursor   Cursor
	Declared []DeclaredColumn
	Options  ResolveOptions
	Rules    DialectRules

	// Key and Cache enable metadata reuse across executions of
	// structurally equivalent statements. A nil Key (an uncacheable
	// statement shape) simply skips the cache.
	Key   *cachekey.Key
	Cache *MetadataCache

	Buffer BufferOptions
}

// Result is a forward-only, single-pass sequence of rows from one statement
// execution. It is not safe for concurrent use.
type Result struct {
	cursor   Cursor
	meta     *RowMetadata
	strategy fetchStrategy

	softClosed bool
	closed     bool

	rowsAffected    int64
	hasRowsAffected bool
	lastInsertID    int64
	hasLastInsertID bool
}

// NewResult resolves row metadata for the executed statement and wires up
// the fetch strategy. Statements without a row descriptor are soft closed
// immediately; their side-channel values stay readable.
func NewResult(stmt ExecutedStatement) (*Result, error) {
	r := &Result{cursor: stmt.Cursor}
	r.captureSideChannel()

	desc := stmt.Cursor.Description()
	if desc == nil {
		r.meta = noResultMetadata
		r.strategy = &noCursorDML{}
		r.release()
		return r, nil
	}

	meta, err := resolveOrReuse(stmt, desc)
	if err != nil {
		return nil, err
	}
	r.meta = meta

	switch {
	case stmt.Buffer.FullyBuffered:
		rows, err := stmt.Cursor.FetchAll()
		if err != nil {
			return nil, r.handleError(err)
		}
		r.strategy = &fullyBufferedStrategy{buf: rows}
	case stmt.Buffer.Stream:
		growth := stmt.Buffer.GrowthFactor
		if growth == 0 {
			growth = 5
		}
		r.strategy = newBufferedStrategy(stmt.Cursor, stmt.Buffer.MaxRowBuffer, growth)
	default:
		r.strategy = &cursorStrategy{cursor: stmt.Cursor}
	}
	return r, nil
}

// resolveOrReuse consults the metadata cache when the statement shape is
// cacheable, adapting a hit to the replayed statement's declared objects.
func resolveOrReuse(stmt ExecutedStatement, desc []Descriptor) (*RowMetadata, error) {
	if stmt.Cache == nil || stmt.Key == nil {
		return ResolveMetadata(stmt.Declared, stmt.Options, desc, stmt.Rules)
	}
	if cached, ok := stmt.Cache.Get(stmt.Key); ok {
		return cached.Adapt(stmt.Declared), nil
	}
	meta, err := ResolveMetadata(stmt.Declared, stmt.Options, desc, stmt.Rules)
	if err != nil {
		return nil, err
	}
	stmt.Cache.Put(stmt.Key, meta)
	return meta, nil
}

func (r *Result) captureSideChannel() {
	sc, ok := r.cursor.(SideChannel)
	if !ok {
		return
	}
	if n, err := sc.RowsAffected(); err == nil {
		r.rowsAffected, r.hasRowsAffected = n, true
	}
	if id, err := sc.LastInsertID(); err == nil {
		r.lastInsertID, r.hasLastInsertID = id, true
	}
}

// handleError is the single funnel for driver-level fetch failures, so that
// every strategy variant reports them identically.
func (r *Result) handleError(err error) error {
	return fmt.Errorf("error fetching rows: %w", err)
}

// release closes the driver cursor and marks the result soft closed. The
// strategy swap has already happened by the time this runs.
func (r *Result) release() {
	if r.softClosed {
		return
	}
	r.softClosed = true
	if r.cursor != nil {
		r.cursor.Close()
		r.cursor = nil
	}
}

// softClose releases the cursor while keeping the result readable: further
// fetches return no rows rather than erroring.
func (r *Result) softClose() {
	r.strategy.softClose(r)
	r.release()
}

// Close hard closes the result. It is idempotent and safe to call from any
// state; fetches after Close report ErrResourceClosed.
func (r *Result) Close() error {
	if !r.closed {
		r.closed = true
		r.strategy.hardClose(r)
	}
	r.release()
	return nil
}

// Closed reports whether Close has been called.
func (r *Result) Closed() bool {
	return r.closed
}

// Metadata returns the resolved row metadata shared by this result's rows.
func (r *Result) Metadata() *RowMetadata {
	return r.meta
}

// Keys returns the declared keys in result order, or nil when the statement
// does not return rows.
func (r *Result) Keys() []string {
	return r.meta.Keys()
}

// FetchOne returns the next row, or (nil, nil) once the result is
// exhausted. Exhaustion releases the driver cursor automatically.
func (r *Result) FetchOne() (*Row, error) {
	raw, err := r.strategy.fetchOne(r)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		r.softClose()
		return nil, nil
	}
	return NewRow(r.meta, raw)
}

// FetchMany returns up to size rows; fewer, then none, as the result drains.
// A non-positive size fetches everything remaining.
func (r *Result) FetchMany(size int) ([]*Row, error) {
	raw, err := r.strategy.fetchMany(r, size)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		r.softClose()
		return nil, nil
	}
	return r.buildRows(raw)
}

// FetchAll drains the remaining rows and releases the cursor.
func (r *Result) FetchAll() ([]*Row, error) {
	raw, err := r.strategy.fetchAll(r)
	if err != nil {
		return nil, err
	}
	r.softClose()
	return r.buildRows(raw)
}

func (r *Result) buildRows(raw [][]any) ([]*Row, error) {
	rows := make([]*Row, 0, len(raw))
	for _, values := range raw {
		row, err := NewRow(r.meta, values)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// First returns the first row and closes the result unconditionally. It
// returns ErrNoRows when the result is empty.
func (r *Result) First() (*Row, error) {
	row, err := r.FetchOne()
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNoRows
	}
	return row, nil
}

// Scalar returns the first column of the first row and closes the result.
func (r *Result) Scalar() (any, error) {
	row, err := r.First()
	if err != nil {
		return nil, err
	}
	return row.Index(0), nil
}

// Columns projects the result onto a subset of its columns, in the given
// order. Keys may be any valid key form. Rows fetched afterwards contain
// only the selected values.
func (r *Result) Columns(keys ...any) (*Result, error) {
	reduced, err := r.meta.Reduce(keys...)
	if err != nil {
		return nil, err
	}
	r.meta = reduced
	return r, nil
}

// YieldPer switches the result to streaming mode with a fixed batch of num
// rows per driver round trip. The live cursor transfers to the replacement
// strategy; buffer growth is disabled.
func (r *Result) YieldPer(num int) *Result {
	r.strategy.yieldPer(r, num)
	return r
}

// Mappings returns a mapping-producing view over this result.
func (r *Result) Mappings() *MappingResult {
	return &MappingResult{result: r}
}

// RowsAffected reports the affected-row count captured from the driver
// before the cursor was released. It stays readable after soft close.
func (r *Result) RowsAffected() (int64, error) {
	if !r.hasRowsAffected {
		return 0, fmt.Errorf("rows affected not available for this statement")
	}
	return r.rowsAffected, nil
}

// LastInsertID reports the generated id captured from the driver.
func (r *Result) LastInsertID() (int64, error) {
	if !r.hasLastInsertID {
		return 0, fmt.Errorf("last insert id not available for this statement")
	}
	return r.lastInsertID, nil
}

// MappingResult adapts a result to produce mapping views instead of rows.
// It consumes the same underlying cursor.
type MappingResult struct {
	result *Result
}

// FetchOne returns the next row as a mapping, or (nil, nil) once exhausted.
func (m *MappingResult) FetchOne() (*RowMapping, error) {
	row, err := m.result.FetchOne()
	if err != nil || row == nil {
		return nil, err
	}
	return row.Mapping(), nil
}

// FetchMany returns up to size rows as mappings.
func (m *MappingResult) FetchMany(size int) ([]*RowMapping, error) {
	rows, err := m.result.FetchMany(size)
	if err != nil {
		return nil, err
	}
	return mappings(rows), nil
}

// FetchAll drains the remaining rows as mappings.
func (m *MappingResult) FetchAll() ([]*RowMapping, error) {
	rows, err := m.result.FetchAll()
	if err != nil {
		return nil, err
	}
	return mappings(rows), nil
}

func mappings(rows []*Row) []*RowMapping {
	out := make([]*RowMapping, len(rows))
	for i, row := range rows {
		out[i] = row.Mapping()
	}
	return out
}
