package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/ir"
)

// Decoder reads payload documents back into rows with SQLite's json_each,
// standing in for OPENJSON in tests that have no SQL Server.
//
// Like the compiled fragment it decodes each column by name, orders rows by
// the ordinal and fails if a column is missing from an element.
type Decoder struct {
	db *sql.DB
}

// Row is one decoded element. Values are in shape column order, converted
// to the Go type of each column's kind; nil is SQL NULL.
type Row struct {
	X      int64
	Values []any
}

// OpenDecoder opens a private in-memory SQLite database.
func OpenDecoder() (*Decoder, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var ok int
	if err := db.QueryRow(`SELECT json_valid('[]')`).Scan(&ok); err != nil || ok != 1 {
		db.Close()
		return nil, fmt.Errorf("sqlite build has no JSON support: %v", err)
	}
	return &Decoder{db: db}, nil
}

// Close closes the database.
func (d *Decoder) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Decode runs payload through json_each and returns its rows ordered by X.
func (d *Decoder) Decode(ctx context.Context, s *ir.Shape, payload string) ([]Row, error) {
	var q bytes.Buffer
	args := make([]any, 0, len(s.Columns)*2+1)

	q.WriteString("SELECT json_extract(value, '$.X')")
	for _, c := range s.Columns {
		// Missing keys give SQL NULL, explicit nulls give the text 'null'.
		q.WriteString(", value -> ?")
		args = append(args, jsonPath(c.Column))
	}
	q.WriteString(" FROM json_each(?) ORDER BY json_extract(value, '$.X')")
	args = append(args, payload)

	rows, err := d.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		raw := make([]sql.NullString, len(s.Columns))
		dest := make([]any, 0, len(raw)+1)
		var x sql.NullInt64
		dest = append(dest, &x)
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if !x.Valid {
			return nil, fmt.Errorf("element %d has no ordinal", len(out))
		}

		row := Row{X: x.Int64, Values: make([]any, len(s.Columns))}
		for i, c := range s.Columns {
			if !raw[i].Valid {
				return nil, fmt.Errorf("element %d omits column %s", x.Int64, c.Column)
			}
			v, err := fromJSON(c.Kind, raw[i].String)
			if err != nil {
				return nil, fmt.Errorf("element %d column %s: %w", x.Int64, c.Column, err)
			}
			row.Values[i] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func jsonPath(column string) string {
	b, _ := json.Marshal(column)
	return "$." + string(b)
}

func fromJSON(kind ir.ScalarKind, text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return catalog.Parse(kind, raw)
}
