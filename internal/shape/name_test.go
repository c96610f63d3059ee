package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/queryvalues/internal/ir"
	"github.com/roach88/queryvalues/internal/options"
	"github.com/roach88/queryvalues/internal/querysql"
	"github.com/roach88/queryvalues/internal/shape"
)

// order shares its short name with the order type of package shape.
type order struct {
	ID   int32
	Note string
}

func TestOf_NameIncludesImportPath(t *testing.T) {
	r, err := shape.OfType[order]()
	require.NoError(t, err)
	assert.Equal(t, "github.com/roach88/queryvalues/internal/shape_test.order", r.Name())

	props := r.Properties()
	require.NotEmpty(t, props)
	assert.Equal(t, r.Name(), props[0].Source.Record)
}

func TestOf_SameShortNameDoesNotShareOptions(t *testing.T) {
	r, err := shape.OfType[order]()
	require.NoError(t, err)
	opts, err := options.For(r).Freeze()
	require.NoError(t, err)

	// A record carrying the bare package-qualified name.
	other, err := shape.Define("shape_test.order", []shape.Field{
		{Name: "ID", Kind: ir.KindInt32},
		{Name: "Note", Kind: ir.KindString},
	})
	require.NoError(t, err)
	s, err := other.Project()
	require.NoError(t, err)

	_, err = querysql.NewSQLCompiler().Compile(s, opts, false)
	assert.True(t, ir.IsInvalidArgument(err), "got %v", err)
}
