package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/queryvalues/internal/ir"
)

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05.9999999",
	time.RFC3339Nano,
	layoutDate,
}

// Parse converts a loosely typed input value (decoded JSON with UseNumber,
// or YAML) into the Go value for kind. nil stays nil.
func Parse(kind ir.ScalarKind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch kind {
	case ir.KindBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, parseError(kind, raw, err)
			}
			return b, nil
		}

	case ir.KindByte:
		n, err := parseInt(kind, raw, 0, math.MaxUint8)
		return uint8(n), err
	case ir.KindInt16:
		n, err := parseInt(kind, raw, math.MinInt16, math.MaxInt16)
		return int16(n), err
	case ir.KindInt32:
		n, err := parseInt(kind, raw, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case ir.KindInt64:
		return parseInt(kind, raw, math.MinInt64, math.MaxInt64)

	case ir.KindDecimal:
		text, ok := numberText(raw)
		if !ok {
			break
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, parseError(kind, raw, err)
		}
		return d, nil

	case ir.KindSingle, ir.KindDouble:
		text, ok := numberText(raw)
		if !ok {
			break
		}
		bits := 64
		if kind == ir.KindSingle {
			bits = 32
		}
		f, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return nil, parseError(kind, raw, err)
		}
		if bits == 32 {
			return float32(f), nil
		}
		return f, nil

	case ir.KindDateTime:
		if s, ok := raw.(string); ok {
			for _, layout := range dateTimeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
			return nil, parseError(kind, raw, fmt.Errorf("unrecognized date/time layout"))
		}

	case ir.KindDateTimeOffset:
		if s, ok := raw.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, parseError(kind, raw, err)
			}
			return DateTimeOffset(t), nil
		}

	case ir.KindDateOnly:
		if s, ok := raw.(string); ok {
			t, err := time.Parse(layoutDate, s)
			if err != nil {
				return nil, parseError(kind, raw, err)
			}
			return Date(t), nil
		}

	case ir.KindTimeOnly:
		if s, ok := raw.(string); ok {
			t, err := time.Parse("15:04:05.9999999", s)
			if err != nil {
				return nil, parseError(kind, raw, err)
			}
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil
		}

	case ir.KindGuid:
		if s, ok := raw.(string); ok {
			u, err := uuid.Parse(s)
			if err != nil {
				return nil, parseError(kind, raw, err)
			}
			return u, nil
		}

	case ir.KindChar:
		if s, ok := raw.(string); ok {
			if utf8.RuneCountInString(s) != 1 {
				return nil, parseError(kind, raw, fmt.Errorf("expected exactly one character"))
			}
			r, _ := utf8.DecodeRuneInString(s)
			return Char(r), nil
		}

	case ir.KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}

	default:
		return nil, ir.NewInternalInvariant(kind)
	}

	return nil, ir.NewInvalidArgument("", fmt.Sprintf("input %v (%T) cannot be read as %s", raw, raw, kind))
}

func parseInt(kind ir.ScalarKind, raw any, lo, hi int64) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, parseError(kind, raw, err)
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, parseError(kind, raw, err)
		}
		n = i
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, parseError(kind, raw, fmt.Errorf("not an integer"))
		}
		n = int64(v)
	default:
		return 0, ir.NewInvalidArgument("", fmt.Sprintf("input %v (%T) cannot be read as %s", raw, raw, kind))
	}
	if n < lo || n > hi {
		return 0, ir.NewInvalidArgument("", fmt.Sprintf("%d out of range for %s", n, kind))
	}
	return n, nil
}

func numberText(raw any) (string, bool) {
	switch v := raw.(type) {
	case json.Number:
		return v.String(), true
	case string:
		return strings.TrimSpace(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return "", false
}

func parseError(kind ir.ScalarKind, raw any, err error) error {
	return ir.NewInvalidArgument("", fmt.Sprintf("cannot read %q as %s: %v", fmt.Sprint(raw), kind, err))
}
