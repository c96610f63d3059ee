// Package payload encodes a sequence into the single JSON document bound
// as the query's payload parameter.
//
// The document is an array with one object per element:
//
//	[{"X":0,"Id":1,"Name":"a"},{"X":1,"Id":2,"Name":null}]
//
// X is the element's zero-based ordinal. Every column of the shape is
// written for every element, null included, in shape column order.
package payload

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/ir"
)

// Source yields the elements of a sequence.
type Source interface {
	// Len returns the number of elements.
	Len() int

	// Value returns the value of property m for element i. nil is null.
	Value(i int, m ir.PropertyMapping) (any, error)
}

// Serialize writes the payload document for src in the layout of s.
func Serialize(s *ir.Shape, src Source) ([]byte, error) {
	if s == nil || len(s.Columns) == 0 {
		return nil, ir.NewInvalidArgument("", "shape has no columns")
	}

	n := src.Len()
	// Rough guess: ordinal plus a short value per column.
	buf := make([]byte, 0, 2+n*(8+len(s.Columns)*16))
	buf = append(buf, '[')

	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, `{"`+ir.IndexColumn+`":`...)
		buf = strconv.AppendInt(buf, int64(i), 10)

		for _, m := range s.Columns {
			v, err := src.Value(i, m)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			buf = append(buf, ',')
			buf = catalog.AppendString(buf, m.Column)
			buf = append(buf, ':')
			buf, err = catalog.AppendJSON(buf, m.Kind, v)
			if err != nil {
				return nil, fmt.Errorf("element %d, column %s: %w", i, m.Column, err)
			}
		}
		buf = append(buf, '}')
	}

	return append(buf, ']'), nil
}

// Slice reads a slice of structs or struct pointers. A nil pointer element
// has every column null.
func Slice(values any) (Source, error) {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ir.NewInvalidArgument("", fmt.Sprintf("expected a slice of records, got %T", values))
	}

	elem := rv.Type().Elem()
	ptr := elem.Kind() == reflect.Pointer
	if ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, ir.NewInvalidArgument("", fmt.Sprintf("expected a slice of records, got %T", values))
	}
	return &sliceSource{rv: rv, elem: elem, ptr: ptr}, nil
}

type sliceSource struct {
	rv   reflect.Value
	elem reflect.Type
	ptr  bool
}

func (s *sliceSource) Len() int {
	return s.rv.Len()
}

func (s *sliceSource) Value(i int, m ir.PropertyMapping) (any, error) {
	if m.Index == nil || m.Source.Record != s.elem.String() {
		return nil, ir.NewInvalidArgument(m.Source.String(), fmt.Sprintf("property does not belong to %s", s.elem))
	}

	v := s.rv.Index(i)
	if s.ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	return v.FieldByIndex(m.Index).Interface(), nil
}

// Scalars reads a slice of scalar values for a scalar shape.
func Scalars(values any) (Source, error) {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ir.NewInvalidArgument("", fmt.Sprintf("expected a slice of scalars, got %T", values))
	}
	return scalarSource{rv: rv}, nil
}

type scalarSource struct {
	rv reflect.Value
}

func (s scalarSource) Len() int {
	return s.rv.Len()
}

func (s scalarSource) Value(i int, m ir.PropertyMapping) (any, error) {
	if m.Column != ir.ValueColumn {
		return nil, ir.NewInvalidArgument(m.Source.String(), "scalar sequences have only the value column")
	}
	return s.rv.Index(i).Interface(), nil
}

// Maps reads loosely typed rows keyed by property name, as decoded from
// JSON (with UseNumber) or YAML. Values are converted with catalog.Parse.
// A missing or null value is allowed only for nullable properties.
func Maps(rows []map[string]any) Source {
	return mapSource(rows)
}

type mapSource []map[string]any

func (s mapSource) Len() int {
	return len(s)
}

func (s mapSource) Value(i int, m ir.PropertyMapping) (any, error) {
	raw := s[i][m.Source.Name]
	if raw == nil {
		if !m.Nullable {
			return nil, ir.NewInvalidArgument(m.Source.String(), "value is required")
		}
		return nil, nil
	}
	v, err := catalog.Parse(m.Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Source, err)
	}
	return v, nil
}
