// Package golden is a test-only oracle: it runs the same schema and
// WHERE-clause filters a test feeds the tablet engine through a real
// SQLite database via database/sql, so property tests can compare the
// engine's result set against an independently computed one instead
// of hand-deriving expected rows.
//
// Nothing in the engine's own runtime imports this package; it exists
// purely for _test.go files.
package golden

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Oracle is a scratch, in-memory SQLite database standing in for the
// tablet engine in a test.
type Oracle struct {
	db *sql.DB
}

// Open starts a fresh in-memory oracle database.
func Open() (*Oracle, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	return &Oracle{db: db}, nil
}

// Close releases the oracle's database handle.
func (o *Oracle) Close() error {
	return o.db.Close()
}

// Column is one column of a golden table: name paired with the SQLite
// affinity closest to the tablet engine's column type.
type Column struct {
	Name string
	Type string
}

// CreateTable creates a table named name with the given columns, an
// implicit rowid standing in for the engine's key column.
func (o *Oracle) CreateTable(name string, cols []Column) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	_, err := o.db.Exec(stmt)
	return err
}

// Insert appends one row to table, values given in column order.
func (o *Oracle) Insert(table string, values ...interface{}) error {
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(placeholders, ", "))
	_, err := o.db.Exec(stmt, values...)
	return err
}

// Row is one row of a query result, column values in select order.
type Row []interface{}

// Query runs sqlText and returns every matching row, column values
// read back as their closest Go type (int64, float64, string, nil).
func (o *Oracle) Query(sqlText string) ([]Row, error) {
	rows, err := o.db.Query(sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		scan := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range scan {
			ptrs[i] = &scan[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, Row(scan))
	}
	return out, rows.Err()
}
