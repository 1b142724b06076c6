package rowset

import (
	"database/sql"
	"errors"
)

// ErrNoRows is returned by [Result.First] style helpers when the statement
// produced no rows. It aliases the database/sql sentinel so callers can test
// either.
var ErrNoRows = sql.ErrNoRows

// ErrNoSuchColumn reports a lookup key absent from the result's keymap.
var ErrNoSuchColumn = errors.New("no such column in result")

// ErrAmbiguousColumn reports a lookup key that matches more than one result
// column. The key stays permanently ambiguous for the lifetime of the
// metadata; reading by a unique alternate key still succeeds.
var ErrAmbiguousColumn = errors.New("ambiguous column name in result")

// ErrResourceClosed reports a read on a hard-closed result, or on a result
// whose statement does not return rows.
var ErrResourceClosed = errors.New("result object is closed")
