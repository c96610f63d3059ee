// Package shape resolves record types into ordered column mappings.
//
// A Record lists every mappable property of a type once. Projecting a
// Record yields an ir.Shape: the decoded columns in record order, plus the
// remaining properties of the record as NULL columns, so a fragment
// compiled for any projection keeps the full column set the surrounding
// query may reference.
package shape

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/ir"
)

// TagName is the struct tag read by Of.
const TagName = "qv"

// ScalarRecord is the record name of scalar sequence shapes.
const ScalarRecord = "scalar"

// Record is the resolved, immutable property list of one record type.
type Record struct {
	name       string
	goType     reflect.Type
	properties []ir.PropertyMapping
	byName     map[string]int
	unmapped   bool
}

// Field declares one property of a Record built with Define.
type Field struct {
	Name     string
	Column   string // defaults to Name
	Kind     ir.ScalarKind
	Nullable bool
}

var records sync.Map // reflect.Type -> *Record

// Of resolves a struct type (or pointer to struct). Results are cached per
// type for the life of the process.
func Of(t reflect.Type) (*Record, error) {
	if t == nil {
		return nil, ir.NewInvalidArgument("", "nil record type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := records.Load(t); ok {
		return cached.(*Record), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, ir.NewUnsupportedType("", t.String())
	}

	r := &Record{
		name:     recordName(t),
		goType:   t,
		byName:   make(map[string]int),
		unmapped: true,
	}
	if err := r.walk(t, nil); err != nil {
		return nil, err
	}
	if len(r.properties) == 0 {
		return nil, ir.NewInvalidArgument("", fmt.Sprintf("record %s has no mappable properties", r.name))
	}

	actual, _ := records.LoadOrStore(t, r)
	return actual.(*Record), nil
}

// OfType is Of for a type parameter.
func OfType[T any]() (*Record, error) {
	return Of(reflect.TypeFor[T]())
}

func (r *Record) walk(t reflect.Type, path []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(TagName)
		if tag == "-" {
			continue
		}

		index := appendIndex(path, i)
		kind, nullable, ok := catalog.KindOf(f.Type)

		// Embedded structs are flattened, exported or not, the same way
		// their fields are promoted.
		if !ok && f.Anonymous && f.Type.Kind() == reflect.Struct {
			if err := r.walk(f.Type, index); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		prop := ir.PropertyID{Record: r.name, Name: f.Name}
		if !ok {
			return ir.NewUnsupportedType(prop.String(), f.Type.String())
		}

		column := f.Name
		if tag != "" {
			column = tag
		}
		if err := r.add(ir.PropertyMapping{
			Source:   prop,
			Column:   column,
			Kind:     kind,
			Nullable: nullable,
			Index:    index,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) add(m ir.PropertyMapping) error {
	if m.Column == "" {
		return ir.NewInvalidArgument(m.Source.String(), "empty column name")
	}
	if strings.EqualFold(m.Column, ir.IndexColumn) {
		return ir.NewNamingCollision(m.Source.String(), m.Column)
	}
	if _, dup := r.byName[m.Source.Name]; dup {
		return ir.NewNamingCollision(m.Source.String(), m.Source.Name)
	}
	for _, p := range r.properties {
		// SQL Server compares column names case-insensitively under the
		// default collation.
		if strings.EqualFold(p.Column, m.Column) {
			return ir.NewNamingCollision(m.Source.String(), m.Column)
		}
	}
	r.byName[m.Source.Name] = len(r.properties)
	r.properties = append(r.properties, m)
	return nil
}

// Define builds a Record from declared fields, for records that have no Go
// type (configuration files, the CLI).
func Define(name string, fields []Field) (*Record, error) {
	if name == "" {
		return nil, ir.NewInvalidArgument("", "record name is required")
	}
	if len(fields) == 0 {
		return nil, ir.NewInvalidArgument("", fmt.Sprintf("record %s has no properties", name))
	}

	r := &Record{
		name:     name,
		byName:   make(map[string]int, len(fields)),
		unmapped: true,
	}
	for _, f := range fields {
		prop := ir.PropertyID{Record: name, Name: f.Name}
		if f.Name == "" {
			return nil, ir.NewInvalidArgument(prop.String(), "property name is required")
		}
		if !f.Kind.Valid() {
			return nil, ir.NewUnsupportedType(prop.String(), f.Kind.String())
		}
		column := f.Column
		if column == "" {
			column = f.Name
		}
		if err := r.add(ir.PropertyMapping{
			Source:   prop,
			Column:   column,
			Kind:     f.Kind,
			Nullable: f.Nullable,
		}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Name returns the record's identity, the Go type name for struct records.
func (r *Record) Name() string {
	return r.name
}

// Type returns the Go struct type, or nil for declared records.
func (r *Record) Type() reflect.Type {
	return r.goType
}

// Properties returns the record's mappings in declaration order.
func (r *Record) Properties() []ir.PropertyMapping {
	out := make([]ir.PropertyMapping, len(r.properties))
	copy(out, r.properties)
	return out
}

// Property looks a mapping up by Go field (property) name.
func (r *Record) Property(name string) (ir.PropertyMapping, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ir.PropertyMapping{}, false
	}
	return r.properties[i], true
}

// WithoutUnmapped returns a copy of r whose projections carry no NULL
// columns for properties left out of the projection.
func (r *Record) WithoutUnmapped() *Record {
	c := *r
	c.unmapped = false
	return &c
}

// Project resolves the shape for the named properties. Columns keep record
// order regardless of the order of names, and each NULL column keeps the
// position of its property. An empty projection selects every property.
func (r *Record) Project(names ...string) (*ir.Shape, error) {
	selected := make([]bool, len(r.properties))
	if len(names) == 0 {
		for i := range selected {
			selected[i] = true
		}
	}
	for _, n := range names {
		i, ok := r.byName[n]
		if !ok {
			return nil, ir.NewInvalidArgument(ir.PropertyID{Record: r.name, Name: n}.String(), "unknown property")
		}
		selected[i] = true
	}

	s := &ir.Shape{Record: r.name}
	for i, p := range r.properties {
		switch {
		case selected[i]:
			s.Columns = append(s.Columns, p)
		case r.unmapped:
			s.Unmapped = append(s.Unmapped, ir.NullColumn{
				Column:   p.Column,
				Position: len(s.Columns) + len(s.Unmapped),
			})
		}
	}
	return s, nil
}

// Scalar returns the single-column shape of a scalar sequence. The value
// column is ir.ValueColumn.
func Scalar(kind ir.ScalarKind, nullable bool) (*ir.Shape, error) {
	if !kind.Valid() {
		return nil, ir.NewUnsupportedType(ir.ValueColumn, kind.String())
	}
	return &ir.Shape{
		Record: ScalarRecord,
		Scalar: true,
		Columns: []ir.PropertyMapping{{
			Source:   ir.PropertyID{Record: ScalarRecord, Name: ir.ValueColumn},
			Column:   ir.ValueColumn,
			Kind:     kind,
			Nullable: nullable,
		}},
	}, nil
}

// ScalarOf resolves the scalar shape for a Go element type.
func ScalarOf(t reflect.Type) (*ir.Shape, error) {
	kind, nullable, ok := catalog.KindOf(t)
	if !ok {
		return nil, ir.NewUnsupportedType(ir.ValueColumn, t.String())
	}
	return Scalar(kind, nullable)
}

// recordName qualifies t by its import path so same-named types in
// different packages stay distinct.
func recordName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func appendIndex(path []int, i int) []int {
	out := make([]int, len(path)+1)
	copy(out, path)
	out[len(path)] = i
	return out
}
