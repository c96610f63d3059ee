package queryable

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/testutil"
)

// Round trips go through testutil.Decoder, which decodes the payload by
// column name and orders by X the way the compiled fragment does.

type nullable struct {
	Flag   *bool
	Small  *int16
	Count  *int64
	Amount decimal.NullDecimal
	Ratio  *float64
	At     *time.Time
	Zoned  *catalog.DateTimeOffset
	Ref    uuid.NullUUID
	Letter *catalog.Char
	Text   *string
	Day    *catalog.Date
	Clock  *catalog.TimeOfDay
}

func decoder(t *testing.T) *testutil.Decoder {
	t.Helper()
	d, err := testutil.OpenDecoder()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestRoundTrip_ThreeIntegers(t *testing.T) {
	v, err := Scalars(newFactory(), []int32{10, 20, 30}, Request{})
	require.NoError(t, err)

	rows, err := decoder(t).Decode(context.Background(), v.Shape, v.Payload)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	for i, want := range []int32{10, 20, 30} {
		assert.Equal(t, int64(i), rows[i].X)
		assert.Equal(t, []any{want}, rows[i].Values)
	}
}

func TestRoundTrip_Sizes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	d := decoder(t)

	for _, n := range []int{0, 1, 2500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			values := make([]string, n)
			for i := range values {
				values[i] = randomText(rng)
			}

			v, err := Scalars(newFactory(), values, Request{})
			require.NoError(t, err)
			assert.Equal(t, n, v.Count)

			rows, err := d.Decode(context.Background(), v.Shape, v.Payload)
			require.NoError(t, err)
			require.Len(t, rows, n)
			for i, row := range rows {
				require.Equal(t, int64(i), row.X)
				require.Equal(t, values[i], row.Values[0], "element %d", i)
			}
		})
	}
}

func randomText(rng *rand.Rand) string {
	const alphabet = "abcXYZ019 \"\\\t\n<>&é日本 "
	runes := []rune(alphabet)
	out := make([]rune, rng.IntN(12))
	for i := range out {
		out[i] = runes[rng.IntN(len(runes))]
	}
	return string(out)
}

func TestRoundTrip_RandomRecords(t *testing.T) {
	type row struct {
		ID    int64
		Price decimal.Decimal
		Ratio float64
		Ref   uuid.UUID
	}

	rng := rand.New(rand.NewPCG(3, 4))
	values := make([]row, 1000)
	for i := range values {
		values[i] = row{
			ID:    rng.Int64(),
			Price: decimal.New(rng.Int64N(1_000_000_000), -int32(rng.IntN(8))),
			Ratio: rng.NormFloat64() * 1e6,
			Ref:   uuid.New(),
		}
	}

	v, err := Records(newFactory(), values, Request{})
	require.NoError(t, err)

	rows, err := decoder(t).Decode(context.Background(), v.Shape, v.Payload)
	require.NoError(t, err)
	require.Len(t, rows, len(values))

	for i, r := range rows {
		want := values[i]
		require.Equal(t, int64(i), r.X)
		require.Equal(t, want.ID, r.Values[0])
		require.True(t, want.Price.Equal(r.Values[1].(decimal.Decimal)), "price %d: %s vs %s", i, want.Price, r.Values[1])
		require.Equal(t, want.Ratio, r.Values[2])
		require.Equal(t, want.Ref, r.Values[3])
	}
}

func TestRoundTrip_NullsStayNull(t *testing.T) {
	v, err := Records(newFactory(), []nullable{{}}, Request{})
	require.NoError(t, err)

	rows, err := decoder(t).Decode(context.Background(), v.Shape, v.Payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Values, 12)
	for i, val := range rows[0].Values {
		assert.Nil(t, val, v.Shape.Columns[i].Column)
	}
}

func TestRoundTrip_NullableValuesSet(t *testing.T) {
	flag := true
	small := int16(-3)
	count := int64(1) << 40
	ratio := 0.1
	at := time.Date(2024, 2, 29, 23, 59, 59, 999999900, time.UTC)
	zoned := catalog.DateTimeOffset(time.Date(2024, 1, 1, 8, 0, 0, 0, time.FixedZone("", 2*60*60)))
	ref := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	letter := catalog.Char('ß')
	text := "hello"
	day := catalog.NewDate(2000, time.January, 1)
	clock := catalog.NewTimeOfDay(13, 14, 15, 1600)

	in := nullable{
		Flag:   &flag,
		Small:  &small,
		Count:  &count,
		Amount: decimal.NewNullDecimal(decimal.RequireFromString("12.3400")),
		Ratio:  &ratio,
		At:     &at,
		Zoned:  &zoned,
		Ref:    uuid.NullUUID{UUID: ref, Valid: true},
		Letter: &letter,
		Text:   &text,
		Day:    &day,
		Clock:  &clock,
	}

	v, err := Records(newFactory(), []nullable{in}, Request{})
	require.NoError(t, err)
	rows, err := decoder(t).Decode(context.Background(), v.Shape, v.Payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0].Values

	assert.Equal(t, true, got[0])
	assert.Equal(t, int16(-3), got[1])
	assert.Equal(t, count, got[2])
	assert.True(t, decimal.RequireFromString("12.34").Equal(got[3].(decimal.Decimal)))
	assert.Equal(t, 0.1, got[4])
	assert.True(t, at.Equal(got[5].(time.Time)))
	assert.True(t, time.Time(zoned).Equal(time.Time(got[6].(catalog.DateTimeOffset))))
	assert.Equal(t, ref, got[7])
	assert.Equal(t, letter, got[8])
	assert.Equal(t, "hello", got[9])
	assert.True(t, time.Time(day).Equal(time.Time(got[10].(catalog.Date))))
	assert.Equal(t, clock, got[11])
}
