package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/queryvalues/internal/ir"
	"github.com/roach88/queryvalues/internal/shape"
)

type line struct {
	ID    int32
	Name  *string
	Price decimal.Decimal
	When  time.Time `qv:"At"`
}

func lineShape(t *testing.T, names ...string) *ir.Shape {
	t.Helper()
	r, err := shape.OfType[line]()
	require.NoError(t, err)
	s, err := r.Project(names...)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func TestSerializeRecords(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	values := []line{
		{ID: 1, Name: ptr("a"), Price: decimal.RequireFromString("1.50"), When: at},
		{ID: 2, Price: decimal.RequireFromString("-3"), When: at},
	}

	src, err := Slice(values)
	require.NoError(t, err)
	out, err := Serialize(lineShape(t), src)
	require.NoError(t, err)

	expected := `[` +
		`{"X":0,"ID":1,"Name":"a","Price":1.5,"At":"2024-03-01T12:00:00.0000000"},` +
		`{"X":1,"ID":2,"Name":null,"Price":-3,"At":"2024-03-01T12:00:00.0000000"}` +
		`]`
	assert.Equal(t, expected, string(out))
	assert.True(t, json.Valid(out))
}

func TestSerializeProjection(t *testing.T) {
	src, err := Slice([]line{{ID: 7, Name: ptr("x")}})
	require.NoError(t, err)

	out, err := Serialize(lineShape(t, "Name"), src)
	require.NoError(t, err)
	assert.Equal(t, `[{"X":0,"Name":"x"}]`, string(out))
}

func TestSerializePointerElements(t *testing.T) {
	src, err := Slice([]*line{{ID: 3}, nil})
	require.NoError(t, err)

	out, err := Serialize(lineShape(t, "ID", "Name"), src)
	require.NoError(t, err)
	assert.Equal(t, `[{"X":0,"ID":3,"Name":null},{"X":1,"ID":null,"Name":null}]`, string(out))
}

func TestSerializeEmpty(t *testing.T) {
	src, err := Slice([]line{})
	require.NoError(t, err)

	out, err := Serialize(lineShape(t), src)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(out))

	src, err = Slice([]line(nil))
	require.NoError(t, err)
	out, err = Serialize(lineShape(t), src)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(out))
}

func TestSerializeScalars(t *testing.T) {
	s, err := shape.Scalar(ir.KindInt32, false)
	require.NoError(t, err)
	src, err := Scalars([]int32{10, 20, 30})
	require.NoError(t, err)

	out, err := Serialize(s, src)
	require.NoError(t, err)
	assert.Equal(t, `[{"X":0,"V":10},{"X":1,"V":20},{"X":2,"V":30}]`, string(out))
}

func TestSerializeNullableScalars(t *testing.T) {
	s, err := shape.Scalar(ir.KindString, true)
	require.NoError(t, err)
	src, err := Scalars([]*string{ptr("a"), nil})
	require.NoError(t, err)

	out, err := Serialize(s, src)
	require.NoError(t, err)
	assert.Equal(t, `[{"X":0,"V":"a"},{"X":1,"V":null}]`, string(out))
}

func TestSerializeOrdinalsAreDense(t *testing.T) {
	s, err := shape.Scalar(ir.KindInt64, false)
	require.NoError(t, err)

	values := make([]int64, 1000)
	for i := range values {
		values[i] = int64(i * 7)
	}
	src, err := Scalars(values)
	require.NoError(t, err)
	out, err := Serialize(s, src)
	require.NoError(t, err)

	var decoded []struct {
		X int
		V int64
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, len(values))
	for i, d := range decoded {
		assert.Equal(t, i, d.X)
		assert.Equal(t, values[i], d.V)
	}
}

func TestSerializeMaps(t *testing.T) {
	r, err := shape.Define("Person", []shape.Field{
		{Name: "Id", Kind: ir.KindInt64},
		{Name: "Name", Kind: ir.KindString, Nullable: true},
	})
	require.NoError(t, err)
	s, err := r.Project()
	require.NoError(t, err)

	out, err := Serialize(s, Maps([]map[string]any{
		{"Id": json.Number("1"), "Name": "ann"},
		{"Id": 2},
	}))
	require.NoError(t, err)
	assert.Equal(t, `[{"X":0,"Id":1,"Name":"ann"},{"X":1,"Id":2,"Name":null}]`, string(out))

	_, err = Serialize(s, Maps([]map[string]any{{"Name": "no id"}}))
	assert.True(t, ir.IsInvalidArgument(err), "got %v", err)

	_, err = Serialize(s, Maps([]map[string]any{{"Id": "one"}}))
	assert.True(t, ir.IsInvalidArgument(err), "got %v", err)
}

func TestSerializeErrors(t *testing.T) {
	_, err := Slice([]int{1})
	assert.True(t, ir.IsInvalidArgument(err))

	_, err = Slice(line{})
	assert.True(t, ir.IsInvalidArgument(err))

	_, err = Scalars(3)
	assert.True(t, ir.IsInvalidArgument(err))

	src, err := Scalars([]int32{1})
	require.NoError(t, err)
	_, err = Serialize(nil, src)
	assert.True(t, ir.IsInvalidArgument(err))

	// Shape of another record.
	type other struct{ ID int32 }
	src, err = Slice([]other{{ID: 1}})
	require.NoError(t, err)
	_, err = Serialize(lineShape(t, "ID"), src)
	assert.True(t, ir.IsInvalidArgument(err))

	// Value that does not fit the column kind.
	s, err := shape.Scalar(ir.KindDouble, false)
	require.NoError(t, err)
	src, err = Scalars([]string{"1.5"})
	require.NoError(t, err)
	_, err = Serialize(s, src)
	assert.True(t, ir.IsInvalidArgument(err))
}
