package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarKindNames(t *testing.T) {
	kinds := AllKinds()
	require.Len(t, kinds, 15)
	assert.Equal(t, KindBoolean, kinds[0])
	assert.Equal(t, KindTimeOnly, kinds[len(kinds)-1])

	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			assert.True(t, k.Valid())
			parsed, err := ParseScalarKind(k.String())
			require.NoError(t, err)
			assert.Equal(t, k, parsed)
		})
	}
}

func TestScalarKindInvalid(t *testing.T) {
	assert.False(t, KindInvalid.Valid())
	assert.False(t, ScalarKind(200).Valid())
	assert.Equal(t, "ScalarKind(200)", ScalarKind(200).String())

	_, err := ParseScalarKind("uint128")
	assert.True(t, IsUnsupportedType(err))
}

func TestParseScalarKindCaseInsensitive(t *testing.T) {
	k, err := ParseScalarKind("datetimeoffset")
	require.NoError(t, err)
	assert.Equal(t, KindDateTimeOffset, k)
}

func TestScalarKindIsText(t *testing.T) {
	for _, k := range AllKinds() {
		expected := k == KindChar || k == KindString
		assert.Equal(t, expected, k.IsText(), k.String())
	}
}

func TestShapeSignature(t *testing.T) {
	s := testShape()
	assert.Equal(t, "orders.Line|ID:ID:Int32:false|Name:Name:String:true|null@2:Price", s.Signature())

	scalar := &Shape{Record: "Int32", Scalar: true, Columns: []PropertyMapping{{Column: ValueColumn, Kind: KindInt32}}}
	assert.Contains(t, scalar.Signature(), "#scalar")
}

func TestShapeSelectList(t *testing.T) {
	s := testShape()
	s.Unmapped = []NullColumn{{Column: "Price", Position: 1}}

	items, err := s.SelectList()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "ID", items[0].Column)
	assert.Nil(t, items[1].Mapping)
	assert.Equal(t, "Price", items[1].Column)
	require.NotNil(t, items[2].Mapping)
	assert.Equal(t, KindString, items[2].Mapping.Kind)
	assert.Equal(t, []string{"Price"}, s.UnmappedColumns())

	for _, bad := range [][]NullColumn{
		{{Column: "Price", Position: 3}},
		{{Column: "A", Position: 1}, {Column: "B", Position: 1}},
		{{Column: "A", Position: 2}, {Column: "B", Position: 0}},
	} {
		s.Unmapped = bad
		_, err := s.SelectList()
		assert.Error(t, err, bad)
	}
}

func TestShapeColumn(t *testing.T) {
	s := testShape()

	c, ok := s.Column("Name")
	require.True(t, ok)
	assert.Equal(t, KindString, c.Kind)

	_, ok = s.Column("Price")
	assert.False(t, ok, "unmapped properties are not decoded columns")
}

func TestErrorFormatting(t *testing.T) {
	err := NewInvalidConfiguration(PropertyID{"orders.Line", "ID"}, KindInt32, "unicode applies to text only")
	assert.Equal(t, "INVALID_CONFIGURATION: unicode applies to text only (property=orders.Line.ID, type=Int32)", err.Error())

	err2 := NewInvalidArgument("orders.Line.Price", "scale out of range")
	assert.Equal(t, "INVALID_ARGUMENT: scale out of range (property=orders.Line.Price)", err2.Error())

	err3 := NewInternalInvariant(ScalarKind(99))
	assert.Equal(t, "INTERNAL_INVARIANT: scalar kind has no catalog entry (type=ScalarKind(99))", err3.Error())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		is       func(error) bool
	}{
		{"configuration", NewInvalidConfiguration(PropertyID{}, KindInt32, "x"), ErrInvalidConfiguration, IsInvalidConfiguration},
		{"argument", NewInvalidArgument("p", "x"), ErrInvalidArgument, IsInvalidArgument},
		{"unsupported", NewUnsupportedType("p", "uint64"), ErrUnsupportedType, IsUnsupportedType},
		{"collision", NewNamingCollision("p", "X"), ErrNamingCollision, IsNamingCollision},
		{"invariant", NewInternalInvariant(0), ErrInternalInvariant, IsInternalInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("compile: %w", tt.err)
			assert.True(t, tt.is(wrapped))
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}

	assert.False(t, errors.Is(NewInvalidArgument("p", "x"), ErrInvalidConfiguration))
	assert.False(t, IsInvalidArgument(errors.New("plain")))
}
