package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/queryvalues/internal/ir"
)

func testShape() *ir.Shape {
	return &ir.Shape{
		Record: "t",
		Columns: []ir.PropertyMapping{
			{Source: ir.PropertyID{Record: "t", Name: "A"}, Column: "A", Kind: ir.KindInt32},
			{Source: ir.PropertyID{Record: "t", Name: "B"}, Column: "B", Kind: ir.KindString, Nullable: true},
		},
	}
}

func openDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := OpenDecoder()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDecode_OrdersByOrdinal(t *testing.T) {
	d := openDecoder(t)

	rows, err := d.Decode(context.Background(), testShape(),
		`[{"X":2,"A":30,"B":"c"},{"X":0,"A":10,"B":null},{"X":1,"A":20,"B":"b"}]`)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, Row{X: 0, Values: []any{int32(10), nil}}, rows[0])
	assert.Equal(t, Row{X: 1, Values: []any{int32(20), "b"}}, rows[1])
	assert.Equal(t, Row{X: 2, Values: []any{int32(30), "c"}}, rows[2])
}

func TestDecode_Empty(t *testing.T) {
	rows, err := openDecoder(t).Decode(context.Background(), testShape(), `[]`)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecode_MissingColumnFails(t *testing.T) {
	_, err := openDecoder(t).Decode(context.Background(), testShape(), `[{"X":0,"A":1}]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "omits column B")
}

func TestDecode_MissingOrdinalFails(t *testing.T) {
	_, err := openDecoder(t).Decode(context.Background(), testShape(), `[{"A":1,"B":null}]`)
	require.Error(t, err)
}
