package catalog

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/queryvalues/internal/ir"
)

func encode(t *testing.T, kind ir.ScalarKind, v any) string {
	t.Helper()
	out, err := AppendJSON(nil, kind, v)
	require.NoError(t, err)
	return string(out)
}

func TestAppendJSON(t *testing.T) {
	offset := time.FixedZone("", -5*60*60)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	n := int32(7)

	tests := []struct {
		name     string
		kind     ir.ScalarKind
		value    any
		expected string
	}{
		{"bool", ir.KindBoolean, true, "true"},
		{"byte", ir.KindByte, uint8(255), "255"},
		{"int16", ir.KindInt16, int16(-32768), "-32768"},
		{"int32", ir.KindInt32, int32(10), "10"},
		{"int64", ir.KindInt64, int64(math.MaxInt64), "9223372036854775807"},
		{"int", ir.KindInt64, 42, "42"},
		{"pointer", ir.KindInt32, &n, "7"},
		{"decimal exact", ir.KindDecimal, decimal.RequireFromString("12345678901234567890.123456789"), "12345678901234567890.123456789"},
		{"decimal negative", ir.KindDecimal, decimal.RequireFromString("-0.5"), "-0.5"},
		{"single", ir.KindSingle, float32(0.1), "0.1"},
		{"double", ir.KindDouble, 0.1, "0.1"},
		{"double large", ir.KindDouble, 1e21, "1e+21"},
		{"datetime", ir.KindDateTime, time.Date(2024, 2, 29, 13, 4, 5, 123456700, time.UTC), `"2024-02-29T13:04:05.1234567"`},
		{"offset", ir.KindDateTimeOffset, DateTimeOffset(time.Date(2024, 1, 2, 3, 4, 5, 0, offset)), `"2024-01-02T03:04:05.0000000-05:00"`},
		{"offset utc", ir.KindDateTimeOffset, DateTimeOffset(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), `"2024-01-02T03:04:05.0000000+00:00"`},
		{"date", ir.KindDateOnly, NewDate(1999, time.December, 31), `"1999-12-31"`},
		{"time", ir.KindTimeOnly, NewTimeOfDay(23, 59, 58, 100), `"23:59:58.0000001"`},
		{"guid", ir.KindGuid, id, `"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`},
		{"char", ir.KindChar, Char('é'), `"é"`},
		{"string", ir.KindString, `say "hi" <now>`, `"say \"hi\" <now>"`},
		{"named string", ir.KindString, status("open"), `"open"`},
		{"nil", ir.KindString, nil, "null"},
		{"nil pointer", ir.KindInt32, (*int32)(nil), "null"},
		{"null decimal", ir.KindDecimal, decimal.NullDecimal{}, "null"},
		{"valid null decimal", ir.KindDecimal, decimal.NewNullDecimal(decimal.NewFromInt(3)), "3"},
		{"null uuid", ir.KindGuid, uuid.NullUUID{}, "null"},
		{"valid null uuid", ir.KindGuid, uuid.NullUUID{UUID: id, Valid: true}, `"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encode(t, tt.kind, tt.value))
		})
	}
}

func TestAppendJSONRejects(t *testing.T) {
	tests := []struct {
		name  string
		kind  ir.ScalarKind
		value any
	}{
		{"NaN", ir.KindDouble, math.NaN()},
		{"Inf", ir.KindSingle, float32(math.Inf(1))},
		{"string as int", ir.KindInt32, "10"},
		{"int as decimal", ir.KindDecimal, 10},
		{"time of day overflow", ir.KindTimeOnly, TimeOfDay(25 * time.Hour)},
		{"invalid rune", ir.KindChar, Char(0xD800)},
		{"string as guid", ir.KindGuid, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AppendJSON(nil, tt.kind, tt.value)
			assert.True(t, ir.IsInvalidArgument(err), "got %v", err)
		})
	}

	_, err := AppendJSON(nil, ir.ScalarKind(77), 1)
	assert.True(t, ir.IsInternalInvariant(err))
}

func TestAppendStringIsValidJSON(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"tab\tnew\nline\rcr",
		"quote\" backslash\\",
		"\x00\x01\x1f",
		"ünïcödé 日本語 \U0001F600",
		"bad \xff utf8",
		"line\u2028separator",
	}

	for _, in := range inputs {
		out := AppendString(nil, in)
		var decoded string
		require.NoError(t, json.Unmarshal(out, &decoded), "input %q produced %s", in, out)
		if in == "bad \xff utf8" {
			assert.Equal(t, "bad \ufffd utf8", decoded)
			continue
		}
		assert.Equal(t, in, decoded)
	}
}

func TestAppendJSONAppends(t *testing.T) {
	out, err := AppendJSON([]byte("["), ir.KindInt32, int32(1))
	require.NoError(t, err)
	assert.Equal(t, "[1", string(out))
}
