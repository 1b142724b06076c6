// Package example demonstrates driving the rowset result layer directly
// against database/sql with the sqlite3 driver.
package example

import (
	"database/sql"
	"fmt"

	"github.com/rowset/rowset"

	_ "github.com/mattn/go-sqlite3"
)

// personColumn is the kind of handle a statement compiler would hold for a
// declared result column; rows remain addressable by it after execution.
type personColumn struct {
	table, name string
}

func Example() error {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
	CREATE TABLE person (
		id integer PRIMARY KEY,
		name text,
		team text
	)`)
	if err != nil {
		return err
	}

	people := []struct {
		name, team string
	}{
		{"Alastair", "engineering"},
		{"Ed", "engineering"},
		{"Pedro", "management"},
		{"Sam", "hr"},
	}
	for _, p := range people {
		result, err := db.Exec(`INSERT INTO person (name, team) VALUES (?, ?)`, p.name, p.team)
		if err != nil {
			return err
		}
		res, err := rowset.NewResult(rowset.ExecutedStatement{
			Cursor: rowset.NewExecCursor(result),
		})
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return fmt.Errorf("expected one inserted row, got %d (%v)", n, err)
		}
	}

	// A compiled statement declares its output columns up front, so rows can
	// be read positionally, by name, or by the declaring column handle.
	idCol := &personColumn{"person", "id"}
	nameCol := &personColumn{"person", "name"}
	declared := []rowset.DeclaredColumn{
		{Key: "id", Name: "id", Objects: []any{idCol}, Type: "integer"},
		{Key: "name", Name: "name", Objects: []any{nameCol}, Type: "text"},
	}

	rows, err := db.Query(`SELECT id, name FROM person WHERE team = ? ORDER BY id`, "engineering")
	if err != nil {
		return err
	}
	cursor, err := rowset.NewSQLCursor(rows)
	if err != nil {
		return err
	}
	res, err := rowset.NewResult(rowset.ExecutedStatement{
		Cursor:   cursor,
		Declared: declared,
		Options:  rowset.ResolveOptions{Ordered: true},
	})
	if err != nil {
		return err
	}
	for {
		row, err := res.FetchOne()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		name, err := row.Get(nameCol)
		if err != nil {
			return err
		}
		fmt.Printf("%v: %v\n", row.Index(0), name)
	}

	// Ad hoc SQL needs no declarations at all; the driver's descriptors
	// drive the key resolution.
	rows, err = db.Query(`SELECT count(*) AS n FROM person`)
	if err != nil {
		return err
	}
	cursor, err = rowset.NewSQLCursor(rows)
	if err != nil {
		return err
	}
	res, err = rowset.NewResult(rowset.ExecutedStatement{Cursor: cursor})
	if err != nil {
		return err
	}
	count, err := res.Scalar()
	if err != nil {
		return err
	}
	fmt.Printf("%d people\n", count)
	return nil
}
