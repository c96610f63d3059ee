// Package config loads entity declarations from CUE, YAML or TOML files and
// turns them into records and frozen options.
//
// Every format decodes into the same File structure. CUE input is also
// unified with an embedded schema first, so CUE users get positioned errors
// for malformed declarations. All declarations are then validated together
// and every problem is reported, not just the first.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/queryvalues/internal/ir"
	"github.com/roach88/queryvalues/internal/options"
	"github.com/roach88/queryvalues/internal/shape"
)

// Format is an input file format.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config file %q: want .cue, .yaml, .yml or .toml", path)
	}
}

// File is the decoded, not yet validated, content of a config file.
type File struct {
	Entities []EntitySpec `json:"entities" yaml:"entities" toml:"entities"`
}

// EntitySpec declares one record and its options.
type EntitySpec struct {
	Name       string         `json:"name" yaml:"name" toml:"name"`
	Unmapped   *bool          `json:"unmapped,omitempty" yaml:"unmapped,omitempty" toml:"unmapped,omitempty"`
	Defaults   DefaultsSpec   `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
	Properties []PropertySpec `json:"properties" yaml:"properties" toml:"properties"`
}

// DefaultsSpec holds entity-wide option defaults.
type DefaultsSpec struct {
	Unicode   *bool   `json:"unicode,omitempty" yaml:"unicode,omitempty" toml:"unicode,omitempty"`
	Scale     *int    `json:"scale,omitempty" yaml:"scale,omitempty" toml:"scale,omitempty"`
	Collation *string `json:"collation,omitempty" yaml:"collation,omitempty" toml:"collation,omitempty"`
}

// PropertySpec declares one property. Unicode, Scale and Collation are
// property overrides.
type PropertySpec struct {
	Name      string  `json:"name" yaml:"name" toml:"name"`
	Kind      string  `json:"kind" yaml:"kind" toml:"kind"`
	Nullable  bool    `json:"nullable,omitempty" yaml:"nullable,omitempty" toml:"nullable,omitempty"`
	Column    string  `json:"column,omitempty" yaml:"column,omitempty" toml:"column,omitempty"`
	Unicode   *bool   `json:"unicode,omitempty" yaml:"unicode,omitempty" toml:"unicode,omitempty"`
	Scale     *int    `json:"scale,omitempty" yaml:"scale,omitempty" toml:"scale,omitempty"`
	Collation *string `json:"collation,omitempty" yaml:"collation,omitempty" toml:"collation,omitempty"`
}

// Entity is a validated declaration.
type Entity struct {
	Record  *shape.Record
	Options *options.EntityOptions
}

// Config is a loaded config file.
type Config struct {
	Source   string
	entities map[string]Entity
}

// Names lists the declared entities, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.entities))
	for name := range c.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entity returns the named entity.
func (c *Config) Entity(name string) (Entity, error) {
	e, ok := c.entities[name]
	if !ok {
		return Entity{}, ir.NewInvalidArgument(name, fmt.Sprintf("no entity %q in %s", name, c.Source))
	}
	return e, nil
}

// Len returns the number of entities.
func (c *Config) Len() int {
	return len(c.entities)
}

// Build validates f. source names the input in error messages. The returned
// error, if any, lists every problem found.
func Build(source string, f *File) (*Config, error) {
	c := &Config{Source: source, entities: make(map[string]Entity, len(f.Entities))}
	errs := new(multierror.Error)

	if len(f.Entities) == 0 {
		errs = multierror.Append(errs, ir.NewInvalidArgument("", "no entities declared"))
	}
	for i, spec := range f.Entities {
		if _, dup := c.entities[spec.Name]; dup {
			errs = multierror.Append(errs, ir.NewInvalidArgument(spec.Name, "entity declared more than once"))
			continue
		}
		e, err := buildEntity(spec)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("entities[%d]: %w", i, err))
			continue
		}
		c.entities[spec.Name] = e
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return c, nil
}

func buildEntity(spec EntitySpec) (Entity, error) {
	errs := new(multierror.Error)

	fields := make([]shape.Field, 0, len(spec.Properties))
	for _, p := range spec.Properties {
		kind, err := ir.ParseScalarKind(p.Kind)
		if err != nil {
			id := ir.PropertyID{Record: spec.Name, Name: p.Name}
			errs = multierror.Append(errs, ir.NewUnsupportedType(id.String(), p.Kind))
			continue
		}
		fields = append(fields, shape.Field{Name: p.Name, Column: p.Column, Kind: kind, Nullable: p.Nullable})
	}
	if errs.Len() > 0 {
		return Entity{}, errs.ErrorOrNil()
	}

	record, err := shape.Define(spec.Name, fields)
	if err != nil {
		return Entity{}, err
	}
	if spec.Unmapped != nil && !*spec.Unmapped {
		record = record.WithoutUnmapped()
	}

	b := options.For(record)
	if spec.Defaults.Unicode != nil {
		b.DefaultUnicode(*spec.Defaults.Unicode)
	}
	if spec.Defaults.Scale != nil {
		if err := b.DefaultDecimalScale(*spec.Defaults.Scale); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if spec.Defaults.Collation != nil {
		if err := b.DefaultCollation(*spec.Defaults.Collation); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	for _, p := range spec.Properties {
		opts := overrides(p)
		if len(opts) == 0 {
			continue
		}
		// One property can break several ways; report each override alone.
		for _, opt := range opts {
			if err := b.Configure(p.Name, opt); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return Entity{}, err
	}

	frozen, err := b.Freeze()
	if err != nil {
		return Entity{}, err
	}
	return Entity{Record: record, Options: frozen}, nil
}

func overrides(p PropertySpec) []options.Option {
	var opts []options.Option
	if p.Unicode != nil {
		opts = append(opts, options.WithUnicode(*p.Unicode))
	}
	if p.Scale != nil {
		opts = append(opts, options.WithDecimalScale(*p.Scale))
	}
	if p.Collation != nil {
		opts = append(opts, options.WithCollation(*p.Collation))
	}
	return opts
}

// Errors flattens an error returned by Build or Load into its individual
// problems.
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []error{err}
	}
	var out []error
	for _, e := range merr.Errors {
		out = append(out, Errors(e)...)
	}
	return out
}
