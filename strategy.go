package rowset

import "fmt"

// fetchStrategy owns the live driver cursor, if any, and decides how raw
// rows are pulled from it. A strategy is replaced, never mutated in place,
// when the result soft closes, hard closes, or enters streaming mode.
//
// Strategies return raw rows only; the owning Result decides when an empty
// fetch transitions the state machine to soft-closed.
type fetchStrategy interface {
	fetchOne(r *Result) ([]any, error)
	fetchMany(r *Result, size int) ([][]any, error)
	fetchAll(r *Result) ([][]any, error)
	softClose(r *Result)
	hardClose(r *Result)
	yieldPer(r *Result, num int)
}

// noCursorDQL stands in for a row-returning statement whose cursor has been
// released. Reads return empty until the result is hard closed, after which
// they report ErrResourceClosed.
type noCursorDQL struct {
	closed bool
}

func (s *noCursorDQL) nonResult(r *Result) error {
	if s.closed {
		return ErrResourceClosed
	}
	return nil
}

func (s *noCursorDQL) fetchOne(r *Result) ([]any, error) {
	return nil, s.nonResult(r)
}

func (s *noCursorDQL) fetchMany(r *Result, size int) ([][]any, error) {
	return nil, s.nonResult(r)
}

func (s *noCursorDQL) fetchAll(r *Result) ([][]any, error) {
	return nil, s.nonResult(r)
}

func (s *noCursorDQL) softClose(r *Result)       {}
func (s *noCursorDQL) hardClose(r *Result)       { s.closed = true }
func (s *noCursorDQL) yieldPer(r *Result, n int) {}

// noCursorDML stands in for a statement that never returns rows. Every read
// reports that, in any state; side-channel values captured at construction
// remain readable through the Result.
type noCursorDML struct {
	closed bool
}

func (s *noCursorDML) nonResult(r *Result) error {
	return fmt.Errorf("statement does not return rows: %w", ErrResourceClosed)
}

func (s *noCursorDML) fetchOne(r *Result) ([]any, error) {
	return nil, s.nonResult(r)
}

func (s *noCursorDML) fetchMany(r *Result, size int) ([][]any, error) {
	return nil, s.nonResult(r)
}

func (s *noCursorDML) fetchAll(r *Result) ([][]any, error) {
	return nil, s.nonResult(r)
}

func (s *noCursorDML) softClose(r *Result)       {}
func (s *noCursorDML) hardClose(r *Result)       { s.closed = true }
func (s *noCursorDML) yieldPer(r *Result, n int) {}

// cursorStrategy forwards every call straight to the driver.
type cursorStrategy struct {
	cursor Cursor
}

func (s *cursorStrategy) fetchOne(r *Result) ([]any, error) {
	row, err := s.cursor.FetchOne()
	if err != nil {
		return nil, r.handleError(err)
	}
	return row, nil
}

func (s *cursorStrategy) fetchMany(r *Result, size int) ([][]any, error) {
	if size <= 0 {
		return s.fetchAll(r)
	}
	rows, err := s.cursor.FetchMany(size)
	if err != nil {
		return nil, r.handleError(err)
	}
	return rows, nil
}

func (s *cursorStrategy) fetchAll(r *Result) ([][]any, error) {
	rows, err := s.cursor.FetchAll()
	if err != nil {
		return nil, r.handleError(err)
	}
	return rows, nil
}

func (s *cursorStrategy) softClose(r *Result) {
	r.strategy = &noCursorDQL{}
}

func (s *cursorStrategy) hardClose(r *Result) {
	r.strategy = &noCursorDQL{closed: true}
}

func (s *cursorStrategy) yieldPer(r *Result, num int) {
	r.strategy = &bufferedStrategy{
		cursor:  s.cursor,
		max:     num,
		bufsize: num,
	}
}

// bufferedStrategy keeps an in-process FIFO of rows ahead of the caller. The
// refill size starts small and grows geometrically up to max, amortizing
// driver round trips for large results while bounding memory. A growth
// factor of zero pins the batch size (explicit streaming mode).
type bufferedStrategy struct {
	cursor  Cursor
	max     int
	bufsize int
	growth  int
	buf     [][]any
}

func newBufferedStrategy(cursor Cursor, max, growth int) *bufferedStrategy {
	if max <= 0 {
		max = defaultMaxRowBuffer
	}
	s := &bufferedStrategy{cursor: cursor, max: max, growth: growth}
	if growth > 0 {
		s.bufsize = 1
	} else {
		s.bufsize = max
	}
	return s
}

func (s *bufferedStrategy) refill(r *Result) error {
	size := s.bufsize
	rows, err := s.cursor.FetchMany(size)
	if err != nil {
		return r.handleError(err)
	}
	s.buf = rows
	if s.growth > 0 && size < s.max {
		next := size * s.growth
		if next > s.max {
			next = s.max
		}
		s.bufsize = next
	}
	return nil
}

func (s *bufferedStrategy) fetchOne(r *Result) ([]any, error) {
	if len(s.buf) == 0 {
		if err := s.refill(r); err != nil {
			return nil, err
		}
		if len(s.buf) == 0 {
			return nil, nil
		}
	}
	row := s.buf[0]
	s.buf = s.buf[1:]
	return row, nil
}

func (s *bufferedStrategy) fetchMany(r *Result, size int) ([][]any, error) {
	if size <= 0 {
		return s.fetchAll(r)
	}
	rows := s.buf
	if size > len(rows) {
		more, err := s.cursor.FetchMany(size - len(rows))
		if err != nil {
			return nil, r.handleError(err)
		}
		rows = append(rows, more...)
	}
	if size < len(rows) {
		s.buf = rows[size:]
		rows = rows[:size]
	} else {
		s.buf = nil
	}
	return rows, nil
}

func (s *bufferedStrategy) fetchAll(r *Result) ([][]any, error) {
	rest, err := s.cursor.FetchAll()
	if err != nil {
		return nil, r.handleError(err)
	}
	rows := append(s.buf, rest...)
	s.buf = nil
	return rows, nil
}

func (s *bufferedStrategy) softClose(r *Result) {
	s.buf = nil
	r.strategy = &noCursorDQL{}
}

func (s *bufferedStrategy) hardClose(r *Result) {
	s.buf = nil
	r.strategy = &noCursorDQL{closed: true}
}

// yieldPer pins the batch size and disables growth.
func (s *bufferedStrategy) yieldPer(r *Result, num int) {
	s.growth = 0
	s.max = num
	s.bufsize = num
}

// fullyBufferedStrategy drains the whole driver cursor into memory at
// construction, for drivers whose connection cannot stay open across
// statement boundaries.
type fullyBufferedStrategy struct {
	buf [][]any
}

func (s *fullyBufferedStrategy) fetchOne(r *Result) ([]any, error) {
	if len(s.buf) == 0 {
		return nil, nil
	}
	row := s.buf[0]
	s.buf = s.buf[1:]
	return row, nil
}

func (s *fullyBufferedStrategy) fetchMany(r *Result, size int) ([][]any, error) {
	if size <= 0 {
		return s.fetchAll(r)
	}
	if size > len(s.buf) {
		size = len(s.buf)
	}
	rows := s.buf[:size]
	s.buf = s.buf[size:]
	return rows, nil
}

func (s *fullyBufferedStrategy) fetchAll(r *Result) ([][]any, error) {
	rows := s.buf
	s.buf = nil
	return rows, nil
}

func (s *fullyBufferedStrategy) softClose(r *Result) {
	s.buf = nil
	r.strategy = &noCursorDQL{}
}

func (s *fullyBufferedStrategy) hardClose(r *Result) {
	s.buf = nil
	r.strategy = &noCursorDQL{closed: true}
}

func (s *fullyBufferedStrategy) yieldPer(r *Result, num int) {}
