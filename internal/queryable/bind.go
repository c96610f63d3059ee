package queryable

import (
	"context"
	"database/sql"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/roach88/queryvalues/internal/ir"
)

// Placeholder marks where Query inlines the fragment in a surrounding
// query.
const Placeholder = "{values}"

// Default parameter names used by Query.
const (
	PayloadParam = "qvPayload"
	CountParam   = "qvCount"
)

// Queryer is the part of *sql.DB, *sql.Conn and *sql.Tx that Query needs.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Bind renders the fragment with named parameter references and returns
// the matching arguments. The payload is bound as nvarchar(max); the count
// argument is present only for fragments compiled with Limit.
func (v *Values) Bind(payloadName, countName string) (string, []any) {
	text := v.Fragment.Render("@"+payloadName, "@"+countName)

	args := []any{sql.Named(payloadName, mssql.NVarCharMax(v.Payload))}
	if v.Fragment.HasCount() {
		args = append(args, sql.Named(countName, v.Count))
	}
	return text, args
}

// Inline substitutes the bound fragment for the single Placeholder in
// surrounding. The returned arguments are the fragment's followed by args.
func (v *Values) Inline(surrounding string, args ...any) (string, []any, error) {
	if n := strings.Count(surrounding, Placeholder); n != 1 {
		return "", nil, ir.NewInvalidArgument("", "surrounding query must contain "+Placeholder+" exactly once")
	}

	text, bound := v.Bind(PayloadParam, CountParam)
	query := strings.Replace(surrounding, Placeholder, text, 1)
	return query, append(bound, args...), nil
}

// Query inlines the fragment into surrounding and runs it on q.
func (v *Values) Query(ctx context.Context, q Queryer, surrounding string, args ...any) (*sql.Rows, error) {
	query, all, err := v.Inline(surrounding, args...)
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, query, all...)
}
