package rowset

import (
	"database/sql"
)

// Cursor is the contract a dialect's driver adapter provides to the result
// layer. All calls are blocking; a cursor is exclusively owned by the fetch
// strategy of the result that created it.
type Cursor interface {
	// Description returns the raw column descriptors, or nil when the
	// statement does not return rows.
	Description() []Descriptor

	// FetchOne returns the next raw row, or (nil, nil) once exhausted.
	FetchOne() ([]any, error)

	// FetchMany returns up to n raw rows; fewer (possibly zero) once the
	// cursor nears exhaustion.
	FetchMany(n int) ([][]any, error)

	// FetchAll drains the remaining rows.
	FetchAll() ([][]any, error)

	// Close releases the cursor. It must be safe to call more than once.
	Close() error
}

// SideChannel is optionally implemented by cursors for statements that
// report execution metadata beyond rows.
type SideChannel interface {
	RowsAffected() (int64, error)
	LastInsertID() (int64, error)
}

// SQLCursor adapts a database/sql row set to the [Cursor] contract, using
// each column's database type name as the raw type code.
type SQLCursor struct {
	rows *sql.Rows
	desc []Descriptor
	done bool
}

// NewSQLCursor wraps rows, reading the column descriptors up front. The
// cursor takes ownership of rows.
func NewSQLCursor(rows *sql.Rows) (*SQLCursor, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	desc := make([]Descriptor, len(types))
	for i, t := range types {
		desc[i] = Descriptor{Name: t.Name(), TypeCode: t.DatabaseTypeName()}
	}
	return &SQLCursor{rows: rows, desc: desc}, nil
}

// Description returns the descriptors captured at construction.
func (c *SQLCursor) Description() []Descriptor {
	return c.desc
}

// FetchOne scans the next row into a fresh value slice.
func (c *SQLCursor) FetchOne() ([]any, error) {
	if c.done {
		return nil, nil
	}
	if !c.rows.Next() {
		c.done = true
		if err := c.rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	values := make([]any, len(c.desc))
	ptrs := make([]any, len(c.desc))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

// FetchMany scans up to n rows.
func (c *SQLCursor) FetchMany(n int) ([][]any, error) {
	var out [][]any
	for i := 0; i < n; i++ {
		row, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

// FetchAll scans the remaining rows.
func (c *SQLCursor) FetchAll() ([][]any, error) {
	var out [][]any
	for {
		row, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

// Close releases the underlying rows.
func (c *SQLCursor) Close() error {
	c.done = true
	return c.rows.Close()
}

// ExecCursor adapts a database/sql execution result for statements that do
// not return rows. Its side-channel values stay readable after the result is
// soft closed.
type ExecCursor struct {
	result sql.Result
}

// NewExecCursor wraps the result of a non-row-returning statement.
func NewExecCursor(result sql.Result) *ExecCursor {
	return &ExecCursor{result: result}
}

// Description returns nil: the statement has no row descriptor.
func (c *ExecCursor) Description() []Descriptor { return nil }

func (c *ExecCursor) FetchOne() ([]any, error)       { return nil, nil }
func (c *ExecCursor) FetchMany(int) ([][]any, error) { return nil, nil }
func (c *ExecCursor) FetchAll() ([][]any, error)     { return nil, nil }
func (c *ExecCursor) Close() error                   { return nil }

// RowsAffected reports the driver's affected-row count.
func (c *ExecCursor) RowsAffected() (int64, error) {
	return c.result.RowsAffected()
}

// LastInsertID reports the driver's generated id.
func (c *ExecCursor) LastInsertID() (int64, error) {
	return c.result.LastInsertId()
}
