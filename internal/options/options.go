// Package options holds the per-entity and per-property settings that
// change how columns are declared: unicode text, decimal scale and
// collation.
//
// Settings are gathered on a Builder, validated as they are set, and then
// frozen into an EntityOptions value that is safe to share and to use as
// part of a cache key.
package options

import (
	"fmt"
	"sort"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/ir"
	"github.com/roach88/queryvalues/internal/shape"
)

// Global defaults, used when neither the property nor the entity sets a
// value.
const (
	GlobalUnicode      = false
	GlobalDecimalScale = 4
	GlobalCollation    = ""
)

// PropertyOptions are the explicit overrides of one property. Unset values
// fall through to the entity defaults.
type PropertyOptions struct {
	property  ir.PropertyID
	kind      ir.ScalarKind
	unicode   *bool
	scale     *int
	collation *string
}

// Property returns the identity the options are attached to.
func (p PropertyOptions) Property() ir.PropertyID {
	return p.property
}

// Unicode returns the unicode override and whether it is set.
func (p PropertyOptions) Unicode() (bool, bool) {
	if p.unicode == nil {
		return false, false
	}
	return *p.unicode, true
}

// DecimalScale returns the scale override and whether it is set.
func (p PropertyOptions) DecimalScale() (int, bool) {
	if p.scale == nil {
		return 0, false
	}
	return *p.scale, true
}

// Collation returns the collation override and whether it is set.
func (p PropertyOptions) Collation() (string, bool) {
	if p.collation == nil {
		return "", false
	}
	return *p.collation, true
}

// Equal reports whether p and o configure the same property with the same
// values.
func (p PropertyOptions) Equal(o PropertyOptions) bool {
	return p.property == o.property &&
		equalPtr(p.unicode, o.unicode) &&
		equalPtr(p.scale, o.scale) &&
		equalPtr(p.collation, o.collation)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (p PropertyOptions) canonical() ir.IRObject {
	obj := ir.IRObject{"property": ir.IRString(p.property.Name)}
	if p.unicode != nil {
		obj["unicode"] = ir.IRBool(*p.unicode)
	}
	if p.scale != nil {
		obj["scale"] = ir.IRInt(*p.scale)
	}
	if p.collation != nil {
		obj["collation"] = ir.IRString(*p.collation)
	}
	return obj
}

// Option sets one override on a property.
type Option func(*PropertyOptions) error

// WithUnicode selects nvarchar over varchar. Only Char and String
// properties accept it.
func WithUnicode(flag bool) Option {
	return func(p *PropertyOptions) error {
		if !p.kind.IsText() {
			return ir.NewInvalidConfiguration(p.property, p.kind, "unicode applies only to Char and String properties")
		}
		p.unicode = &flag
		return nil
	}
}

// WithDecimalScale sets the scale of a Decimal property's decimal(38, s)
// column.
func WithDecimalScale(n int) Option {
	return func(p *PropertyOptions) error {
		if p.kind != ir.KindDecimal {
			return ir.NewInvalidConfiguration(p.property, p.kind, "decimal scale applies only to Decimal properties")
		}
		if err := validateScale(p.property.String(), n); err != nil {
			return err
		}
		p.scale = &n
		return nil
	}
}

// WithCollation adds a COLLATE clause to the property's projected column.
// Whether the server knows the collation is checked when the query runs.
// An empty name clears an entity default collation for this property.
func WithCollation(name string) Option {
	return func(p *PropertyOptions) error {
		if err := validateCollation(p.property.String(), name); err != nil {
			return err
		}
		p.collation = &name
		return nil
	}
}

func validateScale(property string, n int) error {
	if n < 0 || n > catalog.MaxDecimalScale {
		return ir.NewInvalidArgument(property, fmt.Sprintf("decimal scale %d outside [0,%d]", n, catalog.MaxDecimalScale))
	}
	return nil
}

// validateCollation checks the name is a plain identifier. The name is
// written into the SQL text unquoted.
func validateCollation(property, name string) error {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return ir.NewInvalidArgument(property, fmt.Sprintf("collation %q is not a valid collation name", name))
		}
	}
	return nil
}

// Builder collects the options of one record.
type Builder struct {
	record    *shape.Record
	unicode   bool
	scale     int
	collation string
	props     map[ir.PropertyID]*PropertyOptions
}

// For starts the options of record with the global defaults.
func For(record *shape.Record) *Builder {
	return &Builder{
		record:    record,
		unicode:   GlobalUnicode,
		scale:     GlobalDecimalScale,
		collation: GlobalCollation,
		props:     make(map[ir.PropertyID]*PropertyOptions),
	}
}

// ForScalar starts the options of a scalar sequence of kind. Its single
// property is named ir.ValueColumn.
func ForScalar(kind ir.ScalarKind) (*Builder, error) {
	record, err := shape.Define(shape.ScalarRecord, []shape.Field{{Name: ir.ValueColumn, Kind: kind}})
	if err != nil {
		return nil, err
	}
	return For(record), nil
}

// Record returns the record being configured.
func (b *Builder) Record() *shape.Record {
	return b.record
}

// DefaultUnicode sets the entity-wide unicode flag.
func (b *Builder) DefaultUnicode(flag bool) {
	b.unicode = flag
}

// DefaultDecimalScale sets the entity-wide decimal scale.
func (b *Builder) DefaultDecimalScale(n int) error {
	if err := validateScale(b.record.Name(), n); err != nil {
		return err
	}
	b.scale = n
	return nil
}

// DefaultCollation sets the entity-wide collation of text columns.
func (b *Builder) DefaultCollation(name string) error {
	if err := validateCollation(b.record.Name(), name); err != nil {
		return err
	}
	b.collation = name
	return nil
}

// Configure applies opts to the named property. The property's options are
// created the first time it is configured. Either every option applies or
// none does.
func (b *Builder) Configure(property string, opts ...Option) error {
	m, ok := b.record.Property(property)
	if !ok {
		id := ir.PropertyID{Record: b.record.Name(), Name: property}
		return ir.NewInvalidArgument(id.String(), "unknown property")
	}

	next := PropertyOptions{property: m.Source, kind: m.Kind}
	if cur, ok := b.props[m.Source]; ok {
		next = *cur
	}
	for _, opt := range opts {
		if err := opt(&next); err != nil {
			return err
		}
	}
	b.props[m.Source] = &next
	return nil
}

// Freeze snapshots the builder. Later changes to the builder do not affect
// the returned value.
func (b *Builder) Freeze() (*EntityOptions, error) {
	e := &EntityOptions{
		record: b.record.Name(),
		defaults: catalog.Effective{
			Unicode:   b.unicode,
			Scale:     b.scale,
			Collation: b.collation,
		},
		properties: make(map[ir.PropertyID]PropertyOptions, len(b.props)),
	}
	for id, p := range b.props {
		e.properties[id] = *p
	}

	fp, err := ir.OptionsFingerprint(e.canonical())
	if err != nil {
		return nil, fmt.Errorf("freeze options for %s: %w", e.record, err)
	}
	e.fingerprint = fp
	return e, nil
}

// EntityOptions is the frozen options of one record. A nil *EntityOptions
// behaves as the global defaults with no overrides.
type EntityOptions struct {
	record      string
	defaults    catalog.Effective
	properties  map[ir.PropertyID]PropertyOptions
	fingerprint string
}

var defaultOptions *EntityOptions

func init() {
	defaultOptions = newDefaultOptions()
}

func newDefaultOptions() *EntityOptions {
	e := &EntityOptions{
		defaults: catalog.Effective{
			Unicode:   GlobalUnicode,
			Scale:     GlobalDecimalScale,
			Collation: GlobalCollation,
		},
	}
	fp, err := ir.OptionsFingerprint(e.canonical())
	if err != nil {
		panic(err)
	}
	e.fingerprint = fp
	return e
}

// Default returns the options with global defaults and no overrides.
func Default() *EntityOptions {
	return defaultOptions
}

func (e *EntityOptions) orDefault() *EntityOptions {
	if e == nil {
		return defaultOptions
	}
	return e
}

// Record returns the record the options were built for, or "" for Default.
func (e *EntityOptions) Record() string {
	return e.orDefault().record
}

// Defaults returns the entity-level values.
func (e *EntityOptions) Defaults() catalog.Effective {
	return e.orDefault().defaults
}

// Property returns the overrides of one property.
func (e *EntityOptions) Property(id ir.PropertyID) (PropertyOptions, bool) {
	p, ok := e.orDefault().properties[id]
	return p, ok
}

// Properties returns every configured property, sorted by name.
func (e *EntityOptions) Properties() []PropertyOptions {
	e = e.orDefault()
	out := make([]PropertyOptions, 0, len(e.properties))
	for _, p := range e.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].property.Name < out[j].property.Name
	})
	return out
}

// Effective resolves the values that apply to a property: the property's
// override, else the entity default.
func (e *EntityOptions) Effective(id ir.PropertyID) catalog.Effective {
	e = e.orDefault()
	eff := e.defaults
	p, ok := e.properties[id]
	if !ok {
		return eff
	}
	if v, ok := p.Unicode(); ok {
		eff.Unicode = v
	}
	if v, ok := p.DecimalScale(); ok {
		eff.Scale = v
	}
	if v, ok := p.Collation(); ok {
		eff.Collation = v
	}
	return eff
}

// Fingerprint identifies the options by value. Equal options built in any
// order share one fingerprint.
func (e *EntityOptions) Fingerprint() string {
	return e.orDefault().fingerprint
}

// Equal reports whether e and o carry the same values.
func (e *EntityOptions) Equal(o *EntityOptions) bool {
	e, o = e.orDefault(), o.orDefault()
	if e.record != o.record || e.defaults != o.defaults || len(e.properties) != len(o.properties) {
		return false
	}
	for id, p := range e.properties {
		q, ok := o.properties[id]
		if !ok || !p.Equal(q) {
			return false
		}
	}
	return true
}

func (e *EntityOptions) canonical() ir.IRObject {
	props := e.Properties()
	arr := make(ir.IRArray, len(props))
	for i, p := range props {
		arr[i] = p.canonical()
	}
	return ir.IRObject{
		"record": ir.IRString(e.record),
		"defaults": ir.IRObject{
			"unicode":   ir.IRBool(e.defaults.Unicode),
			"scale":     ir.IRInt(e.defaults.Scale),
			"collation": ir.IRString(e.defaults.Collation),
		},
		"properties": arr,
	}
}
