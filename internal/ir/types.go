package ir

import (
	"fmt"
	"strings"
)

// Reserved wire column names.
const (
	// IndexColumn carries each element's zero-based ordinal.
	IndexColumn = "X"

	// ValueColumn carries the element itself in scalar sequences.
	ValueColumn = "V"
)

// ScalarKind is the closed set of value kinds a column can carry.
type ScalarKind uint8

const (
	KindInvalid ScalarKind = iota
	KindBoolean
	KindByte
	KindInt16
	KindInt32
	KindInt64
	KindDecimal
	KindSingle
	KindDouble
	KindDateTime
	KindDateTimeOffset
	KindGuid
	KindChar
	KindString
	KindDateOnly
	KindTimeOnly
)

var kindNames = [...]string{
	KindInvalid:        "Invalid",
	KindBoolean:        "Boolean",
	KindByte:           "Byte",
	KindInt16:          "Int16",
	KindInt32:          "Int32",
	KindInt64:          "Int64",
	KindDecimal:        "Decimal",
	KindSingle:         "Single",
	KindDouble:         "Double",
	KindDateTime:       "DateTime",
	KindDateTimeOffset: "DateTimeOffset",
	KindGuid:           "Guid",
	KindChar:           "Char",
	KindString:         "String",
	KindDateOnly:       "DateOnly",
	KindTimeOnly:       "TimeOnly",
}

// AllKinds lists every valid kind in declaration order.
func AllKinds() []ScalarKind {
	kinds := make([]ScalarKind, 0, len(kindNames)-1)
	for k := KindBoolean; int(k) < len(kindNames); k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k ScalarKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ScalarKind(%d)", uint8(k))
}

// Valid reports whether k is a member of the closed set.
func (k ScalarKind) Valid() bool {
	return k > KindInvalid && int(k) < len(kindNames)
}

// IsText reports whether values of k have text comparison semantics.
func (k ScalarKind) IsText() bool {
	return k == KindChar || k == KindString
}

// ParseScalarKind looks a kind up by name, case-insensitively.
func ParseScalarKind(name string) (ScalarKind, error) {
	for _, k := range AllKinds() {
		if strings.EqualFold(k.String(), name) {
			return k, nil
		}
	}
	return KindInvalid, &Error{
		Code:    ErrCodeUnsupportedType,
		Message: fmt.Sprintf("unknown scalar kind %q", name),
		Type:    name,
	}
}

// PropertyID identifies a source property by its record and Go field name.
// It is comparable and used as a map key for per-property options.
type PropertyID struct {
	Record string `json:"record"`
	Name   string `json:"name"`
}

func (p PropertyID) String() string {
	return p.Record + "." + p.Name
}

// PropertyMapping binds a source property to a target column.
type PropertyMapping struct {
	Source   PropertyID `json:"source"`
	Column   string     `json:"column"`
	Kind     ScalarKind `json:"kind"`
	Nullable bool       `json:"nullable"`

	// Index is the reflect field path for struct-backed records; nil for
	// declarative records.
	Index []int `json:"-"`
}

// Shape is one queryable projection of a record type.
//
// Columns are the decoded columns, in the order used by both the payload
// and the WITH clause. Unmapped are the remaining columns of the wider
// record, projected as NULL so the rowset keeps the full column set and
// order of the record.
type Shape struct {
	Record   string            `json:"record"`
	Scalar   bool              `json:"scalar"`
	Columns  []PropertyMapping `json:"columns"`
	Unmapped []NullColumn      `json:"unmapped,omitempty"`
}

// NullColumn is a record column the projection leaves out. Position is its
// index in the SELECT list after the index column, counting decoded and
// NULL columns alike.
type NullColumn struct {
	Column   string `json:"column"`
	Position int    `json:"position"`
}

// SelectItem is one entry of a shape's SELECT list. Mapping is nil for a
// NULL column.
type SelectItem struct {
	Column  string
	Mapping *PropertyMapping
}

// Signature returns a stable textual identity of the shape.
func (s *Shape) Signature() string {
	var b strings.Builder
	b.WriteString(s.Record)
	if s.Scalar {
		b.WriteString("#scalar")
	}
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "|%s:%s:%s:%t", c.Source.Name, c.Column, c.Kind, c.Nullable)
	}
	for _, u := range s.Unmapped {
		fmt.Fprintf(&b, "|null@%d:%s", u.Position, u.Column)
	}
	return b.String()
}

// UnmappedColumns returns the names of the NULL columns in SELECT order.
func (s *Shape) UnmappedColumns() []string {
	if len(s.Unmapped) == 0 {
		return nil
	}
	out := make([]string, len(s.Unmapped))
	for i, u := range s.Unmapped {
		out[i] = u.Column
	}
	return out
}

// SelectList merges Columns and Unmapped into SELECT order. It fails when
// the NULL positions do not interleave with the decoded columns.
func (s *Shape) SelectList() ([]SelectItem, error) {
	total := len(s.Columns) + len(s.Unmapped)
	items := make([]SelectItem, 0, total)
	next := 0
	for _, u := range s.Unmapped {
		if u.Position < len(items) || u.Position >= total {
			return nil, fmt.Errorf("null column %s at position %d out of order", u.Column, u.Position)
		}
		for len(items) < u.Position {
			if next >= len(s.Columns) {
				return nil, fmt.Errorf("null column %s at position %d past the decoded columns", u.Column, u.Position)
			}
			items = append(items, SelectItem{Column: s.Columns[next].Column, Mapping: &s.Columns[next]})
			next++
		}
		items = append(items, SelectItem{Column: u.Column})
	}
	for ; next < len(s.Columns); next++ {
		items = append(items, SelectItem{Column: s.Columns[next].Column, Mapping: &s.Columns[next]})
	}
	return items, nil
}

// Column returns the mapping for a source property name.
func (s *Shape) Column(name string) (PropertyMapping, bool) {
	for _, c := range s.Columns {
		if c.Source.Name == name {
			return c, true
		}
	}
	return PropertyMapping{}, false
}

func (s *Shape) canonical() IRObject {
	cols := make(IRArray, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = IRObject{
			"property": IRString(c.Source.Name),
			"column":   IRString(c.Column),
			"kind":     IRString(c.Kind.String()),
			"nullable": IRBool(c.Nullable),
		}
	}
	unmapped := make(IRArray, len(s.Unmapped))
	for i, u := range s.Unmapped {
		unmapped[i] = IRObject{
			"column":   IRString(u.Column),
			"position": IRInt(u.Position),
		}
	}
	return IRObject{
		"record":   IRString(s.Record),
		"scalar":   IRBool(s.Scalar),
		"columns":  cols,
		"unmapped": unmapped,
	}
}
