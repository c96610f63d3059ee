package catalog

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/queryvalues/internal/ir"
)

// Wire layouts. Seven fractional digits match datetime2 / time precision.
const (
	layoutDateTime = "2006-01-02T15:04:05.0000000"
	layoutOffset   = "2006-01-02T15:04:05.0000000-07:00"
	layoutDate     = "2006-01-02"
)

const hexDigits = "0123456789abcdef"

// AppendJSON appends the wire encoding of v as kind to dst.
//
// nil, nil pointers and invalid Null* wrappers encode as null. Values are
// written in the textual form OPENJSON expects for the declared column type,
// so nothing depends on locale or float rounding on the server.
func AppendJSON(dst []byte, kind ir.ScalarKind, v any) ([]byte, error) {
	v, null := unwrap(v)
	if null {
		return append(dst, "null"...), nil
	}

	switch kind {
	case ir.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Bool {
				return nil, mismatch(kind, v)
			}
			b = rv.Bool()
		}
		return strconv.AppendBool(dst, b), nil

	case ir.KindByte, ir.KindInt16, ir.KindInt32, ir.KindInt64:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			return strconv.AppendInt(dst, rv.Int(), 10), nil
		case rv.CanUint():
			return strconv.AppendUint(dst, rv.Uint(), 10), nil
		}
		return nil, mismatch(kind, v)

	case ir.KindDecimal:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, mismatch(kind, v)
		}
		return append(dst, d.String()...), nil

	case ir.KindSingle, ir.KindDouble:
		rv := reflect.ValueOf(v)
		if !rv.CanFloat() {
			return nil, mismatch(kind, v)
		}
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ir.NewInvalidArgument("", fmt.Sprintf("%s value %v has no JSON representation", kind, f))
		}
		bits := 64
		if kind == ir.KindSingle {
			bits = 32
		}
		return strconv.AppendFloat(dst, f, 'g', -1, bits), nil

	case ir.KindDateTime:
		t, ok := asTime(v)
		if !ok {
			return nil, mismatch(kind, v)
		}
		return appendQuoted(dst, t.Format(layoutDateTime)), nil

	case ir.KindDateTimeOffset:
		t, ok := asTime(v)
		if !ok {
			return nil, mismatch(kind, v)
		}
		return appendQuoted(dst, t.Format(layoutOffset)), nil

	case ir.KindDateOnly:
		t, ok := asTime(v)
		if !ok {
			return nil, mismatch(kind, v)
		}
		return appendQuoted(dst, t.Format(layoutDate)), nil

	case ir.KindTimeOnly:
		d, ok := v.(TimeOfDay)
		if !ok {
			return nil, mismatch(kind, v)
		}
		s, err := formatTimeOfDay(d)
		if err != nil {
			return nil, err
		}
		return appendQuoted(dst, s), nil

	case ir.KindGuid:
		u, ok := v.(uuid.UUID)
		if !ok {
			return nil, mismatch(kind, v)
		}
		return appendQuoted(dst, u.String()), nil

	case ir.KindChar:
		var r rune
		switch c := v.(type) {
		case Char:
			r = rune(c)
		case rune:
			r = c
		default:
			return nil, mismatch(kind, v)
		}
		if !utf8.ValidRune(r) {
			return nil, ir.NewInvalidArgument("", fmt.Sprintf("invalid character %U", r))
		}
		return AppendString(dst, string(r)), nil

	case ir.KindString:
		s, ok := v.(string)
		if !ok {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.String {
				return nil, mismatch(kind, v)
			}
			s = rv.String()
		}
		return AppendString(dst, s), nil

	default:
		return nil, ir.NewInternalInvariant(kind)
	}
}

// unwrap dereferences pointers and the Null* wrappers, reporting null.
func unwrap(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case decimal.NullDecimal:
		if !val.Valid {
			return nil, true
		}
		return val.Decimal, false
	case uuid.NullUUID:
		if !val.Valid {
			return nil, true
		}
		return val.UUID, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		return unwrap(rv.Elem().Interface())
	}
	return v, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case Date:
		return time.Time(t), true
	case DateTimeOffset:
		return time.Time(t), true
	}
	return time.Time{}, false
}

func formatTimeOfDay(d TimeOfDay) (string, error) {
	dur := time.Duration(d)
	if dur < 0 || dur >= 24*time.Hour {
		return "", ir.NewInvalidArgument("", fmt.Sprintf("time of day %s outside [00:00, 24:00)", dur))
	}
	h := dur / time.Hour
	dur -= h * time.Hour
	m := dur / time.Minute
	dur -= m * time.Minute
	s := dur / time.Second
	dur -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%07d", int64(h), int64(m), int64(s), int64(dur/100)), nil
}

func mismatch(kind ir.ScalarKind, v any) error {
	return ir.NewInvalidArgument("", fmt.Sprintf("value of type %T cannot be encoded as %s", v, kind))
}

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	dst = append(dst, s...)
	return append(dst, '"')
}

// AppendString appends s as a JSON string. Unlike encoding/json it does not
// escape <, > and &, which would only inflate the payload; invalid UTF-8 is
// replaced with U+FFFD the same way encoding/json does.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		if b := s[i]; b < utf8.RuneSelf {
			if b >= 0x20 && b != '"' && b != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch b {
			case '"', '\\':
				dst = append(dst, '\\', b)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
