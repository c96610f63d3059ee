// Package catalog maps scalar kinds to Go types, SQL Server column types and
// payload wire encodings.
//
// Every ir.ScalarKind has exactly one entry. A kind without an entry is an
// internal invariant violation, never a user input problem.
package catalog

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/queryvalues/internal/ir"
)

// MaxDecimalScale is the largest scale a decimal(38, s) column accepts.
const MaxDecimalScale = 38

// DecimalPrecision is the fixed precision of decoded decimal columns.
const DecimalPrecision = 38

// Char is a single character. It is a distinct type so it is not confused
// with int32, which rune aliases.
type Char rune

// Date is a calendar date without time of day (DateOnly).
type Date time.Time

// NewDate returns the Date for y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// TimeOfDay is a time of day without date (TimeOnly), measured from midnight.
type TimeOfDay time.Duration

// NewTimeOfDay returns the TimeOfDay for h:m:s.ns.
func NewTimeOfDay(hour, minute, second, nanosecond int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(nanosecond))
}

// DateTimeOffset is an instant that keeps its UTC offset on the wire.
// A plain time.Time maps to DateTime and loses its offset.
type DateTimeOffset time.Time

// Effective holds option values after precedence has been applied
// (property override, else entity default, else global default).
type Effective struct {
	Unicode   bool
	Scale     int
	Collation string
}

// Entry describes one kind.
type Entry struct {
	Kind    ir.ScalarKind
	GoType  string
	SQLType string // default rendering, options at their global defaults
	Wire    string
}

var (
	timeType        = reflect.TypeFor[time.Time]()
	dateType        = reflect.TypeFor[Date]()
	timeOfDayType   = reflect.TypeFor[TimeOfDay]()
	offsetType      = reflect.TypeFor[DateTimeOffset]()
	charType        = reflect.TypeFor[Char]()
	decimalType     = reflect.TypeFor[decimal.Decimal]()
	nullDecimalType = reflect.TypeFor[decimal.NullDecimal]()
	uuidType        = reflect.TypeFor[uuid.UUID]()
	nullUUIDType    = reflect.TypeFor[uuid.NullUUID]()
)

// exactTypes are matched before falling back to reflect.Kind, so named
// types over int32 / int64 / time.Time keep their own kind.
var exactTypes = map[reflect.Type]ir.ScalarKind{
	timeType:      ir.KindDateTime,
	dateType:      ir.KindDateOnly,
	timeOfDayType: ir.KindTimeOnly,
	offsetType:    ir.KindDateTimeOffset,
	charType:      ir.KindChar,
	decimalType:   ir.KindDecimal,
	uuidType:      ir.KindGuid,
}

// KindOf returns the scalar kind for a Go static type. Pointer types and
// the Null* wrappers of decimal and uuid are nullable.
func KindOf(t reflect.Type) (kind ir.ScalarKind, nullable bool, ok bool) {
	switch t {
	case nullDecimalType:
		return ir.KindDecimal, true, true
	case nullUUIDType:
		return ir.KindGuid, true, true
	}

	if t.Kind() == reflect.Pointer {
		kind, _, ok = kindOfValueType(t.Elem())
		return kind, true, ok
	}
	return kindOfValueType(t)
}

func kindOfValueType(t reflect.Type) (ir.ScalarKind, bool, bool) {
	if k, ok := exactTypes[t]; ok {
		return k, false, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return ir.KindBoolean, false, true
	case reflect.Uint8:
		return ir.KindByte, false, true
	case reflect.Int16:
		return ir.KindInt16, false, true
	case reflect.Int32:
		return ir.KindInt32, false, true
	case reflect.Int64, reflect.Int:
		return ir.KindInt64, false, true
	case reflect.Float32:
		return ir.KindSingle, false, true
	case reflect.Float64:
		return ir.KindDouble, false, true
	case reflect.String:
		return ir.KindString, false, true
	}
	return ir.KindInvalid, false, false
}

// SQLTypeFor returns the column type declared in the WITH clause.
// It is a pure function of kind and effective options.
func SQLTypeFor(kind ir.ScalarKind, opts Effective) (string, error) {
	switch kind {
	case ir.KindBoolean:
		return "bit", nil
	case ir.KindByte:
		return "tinyint", nil
	case ir.KindInt16:
		return "smallint", nil
	case ir.KindInt32:
		return "int", nil
	case ir.KindInt64:
		return "bigint", nil
	case ir.KindDecimal:
		if opts.Scale < 0 || opts.Scale > MaxDecimalScale {
			return "", ir.NewInvalidArgument("", fmt.Sprintf("decimal scale %d outside [0,%d]", opts.Scale, MaxDecimalScale))
		}
		return fmt.Sprintf("decimal(%d, %d)", DecimalPrecision, opts.Scale), nil
	case ir.KindSingle:
		return "real", nil
	case ir.KindDouble:
		return "float", nil
	case ir.KindDateTime:
		return "datetime2", nil
	case ir.KindDateTimeOffset:
		return "datetimeoffset", nil
	case ir.KindGuid:
		return "uniqueidentifier", nil
	case ir.KindChar:
		if opts.Unicode {
			return "nvarchar(1)", nil
		}
		return "varchar(1)", nil
	case ir.KindString:
		if opts.Unicode {
			return "nvarchar(max)", nil
		}
		return "varchar(max)", nil
	case ir.KindDateOnly:
		return "date", nil
	case ir.KindTimeOnly:
		return "time", nil
	default:
		return "", ir.NewInternalInvariant(kind)
	}
}

// Entries lists the catalog in kind order, rendered with the given
// defaults.
func Entries(defaults Effective) []Entry {
	goTypes := map[ir.ScalarKind]string{
		ir.KindBoolean:        "bool",
		ir.KindByte:           "uint8",
		ir.KindInt16:          "int16",
		ir.KindInt32:          "int32",
		ir.KindInt64:          "int64, int",
		ir.KindDecimal:        "decimal.Decimal",
		ir.KindSingle:         "float32",
		ir.KindDouble:         "float64",
		ir.KindDateTime:       "time.Time",
		ir.KindDateTimeOffset: "catalog.DateTimeOffset",
		ir.KindGuid:           "uuid.UUID",
		ir.KindChar:           "catalog.Char",
		ir.KindString:         "string",
		ir.KindDateOnly:       "catalog.Date",
		ir.KindTimeOnly:       "catalog.TimeOfDay",
	}

	entries := make([]Entry, 0, len(goTypes))
	for _, k := range ir.AllKinds() {
		sqlType, err := SQLTypeFor(k, defaults)
		if err != nil {
			sqlType = "?"
		}
		entries = append(entries, Entry{
			Kind:    k,
			GoType:  goTypes[k],
			SQLType: sqlType,
			Wire:    wireDescription(k),
		})
	}
	return entries
}

func wireDescription(k ir.ScalarKind) string {
	switch k {
	case ir.KindBoolean:
		return "true|false"
	case ir.KindByte, ir.KindInt16, ir.KindInt32, ir.KindInt64:
		return "integer number"
	case ir.KindDecimal:
		return "exact decimal number"
	case ir.KindSingle, ir.KindDouble:
		return "shortest round-trip number"
	case ir.KindDateTime:
		return `"yyyy-mm-ddThh:mm:ss.fffffff"`
	case ir.KindDateTimeOffset:
		return `"yyyy-mm-ddThh:mm:ss.fffffff+hh:mm"`
	case ir.KindGuid:
		return `"xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"`
	case ir.KindChar, ir.KindString:
		return "JSON string"
	case ir.KindDateOnly:
		return `"yyyy-mm-dd"`
	case ir.KindTimeOnly:
		return `"hh:mm:ss.fffffff"`
	}
	return ""
}
