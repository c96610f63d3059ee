package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/ir"
	"github.com/roach88/queryvalues/internal/options"
)

const (
	sqlSelect    = "SELECT "
	sqlSelectTop = "SELECT TOP(" + ir.CountPlaceholder + ") "
	sqlFrom      = "FROM OPENJSON("
)

// SQLCompiler compiles a shape into a SQL Server fragment that decodes the
// payload parameter with OPENJSON.
//
// The fragment has the form
//
//	SELECT [TOP({1}) ][X], [Col] [COLLATE c], NULL [Unmapped], ...
//	FROM OPENJSON({0}) WITH ([X] int, [Col] <type>, ...)
//	ORDER BY [X]
//
// CRITICAL: every fragment ends with ORDER BY on the ordinal so rows come
// back in sequence order. Values are never written into the text; only
// identifiers, column types and collation names are.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile builds the fragment for s under opts. When top is set the
// SELECT is limited to the element count, bound through {1}.
//
// Output is a pure function of (s, opts, top): identical inputs produce
// byte-identical text.
func (c *SQLCompiler) Compile(s *ir.Shape, opts *options.EntityOptions, top bool) (*ir.Fragment, error) {
	if s == nil || len(s.Columns) == 0 {
		return nil, ir.NewInvalidArgument("", "cannot compile a shape with no columns")
	}
	if rec := opts.Record(); rec != "" && rec != s.Record {
		return nil, ir.NewInvalidArgument("", fmt.Sprintf("options for %s cannot compile shape of %s", rec, s.Record))
	}

	var sb strings.Builder
	countAt := -1

	if top {
		countAt = len("SELECT TOP(")
		sb.WriteString(sqlSelectTop)
	} else {
		sb.WriteString(sqlSelect)
	}
	sb.WriteString(quoteIdent(ir.IndexColumn))

	items, err := s.SelectList()
	if err != nil {
		return nil, &ir.Error{Code: ir.ErrCodeInternalInvariant, Message: err.Error()}
	}

	// Projection in record order; left-out properties read as NULL.
	for _, item := range items {
		sb.WriteString(", ")
		m := item.Mapping
		if m == nil {
			sb.WriteString("NULL ")
			sb.WriteString(quoteIdent(item.Column))
			continue
		}
		sb.WriteString(quoteIdent(m.Column))

		if m.Kind.IsText() {
			if coll := opts.Effective(m.Source).Collation; coll != "" {
				sb.WriteString(" COLLATE ")
				sb.WriteString(coll)
			}
		}
	}
	sb.WriteByte('\n')

	// Decode clause.
	sb.WriteString(sqlFrom)
	payloadAt := sb.Len()
	sb.WriteString(ir.PayloadPlaceholder)
	sb.WriteString(") WITH (")
	sb.WriteString(quoteIdent(ir.IndexColumn))
	sb.WriteString(" int")

	for _, m := range s.Columns {
		sqlType, err := catalog.SQLTypeFor(m.Kind, opts.Effective(m.Source))
		if err != nil {
			return nil, fmt.Errorf("compile column %s: %w", m.Column, err)
		}
		sb.WriteString(", ")
		sb.WriteString(quoteIdent(m.Column))
		sb.WriteByte(' ')
		sb.WriteString(sqlType)
	}
	sb.WriteString(")\n")

	// MANDATORY: ordinal order.
	sb.WriteString("ORDER BY ")
	sb.WriteString(quoteIdent(ir.IndexColumn))

	frag, err := ir.NewFragment(sb.String(), payloadAt, countAt)
	if err != nil {
		return nil, &ir.Error{Code: ir.ErrCodeInternalInvariant, Message: err.Error()}
	}
	return frag, nil
}

// quoteIdent brackets a SQL Server identifier, doubling any closing
// bracket inside it.
func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
