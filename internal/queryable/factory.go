// Package queryable turns an in-memory sequence into a SQL fragment plus
// the payload to bind with it.
//
// A Factory owns the fragment cache and the compiler. Construct one per
// process and pass it to every call site:
//
//	f := queryable.NewFactory()
//	v, err := queryable.Scalars(f, ids, queryable.Request{})
//	rows, err := v.Query(ctx, db, "SELECT o.* FROM Orders o JOIN ({values}) q ON q.V = o.Id ORDER BY q.X")
package queryable

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/roach88/queryvalues/internal/fragcache"
	"github.com/roach88/queryvalues/internal/ir"
	"github.com/roach88/queryvalues/internal/options"
	"github.com/roach88/queryvalues/internal/payload"
	"github.com/roach88/queryvalues/internal/querysql"
	"github.com/roach88/queryvalues/internal/shape"
)

// Request describes what the surrounding query needs from a sequence.
type Request struct {
	// Projection names the record properties the query reads. Empty
	// selects every property. Must be empty for scalar sequences.
	Projection []string

	// Options are the frozen entity options. nil means global defaults.
	Options *options.EntityOptions

	// Limit asks for the SELECT TOP row-limit optimization. The caller
	// decides when only the first N rows are needed.
	Limit bool

	// OmitUnmapped drops the NULL columns of properties left out of
	// Projection.
	OmitUnmapped bool
}

// Values is a compiled fragment and the payload to bind with it.
type Values struct {
	Fragment *ir.Fragment
	Shape    *ir.Shape
	Payload  string
	Count    int
}

// Factory compiles and caches fragments.
type Factory struct {
	cache    *fragcache.Cache
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithCache shares an existing cache.
func WithCache(c *fragcache.Cache) Option {
	return func(f *Factory) {
		f.cache = c
	}
}

// WithLogger sets the logger used for compile and cache events.
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = l
	}
}

// NewFactory creates a Factory with its own cache.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		cache:    fragcache.New(),
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Cache returns the factory's fragment cache.
func (f *Factory) Cache() *fragcache.Cache {
	return f.cache
}

// Fragment returns the cached fragment for s, compiling it on first use.
func (f *Factory) Fragment(s *ir.Shape, opts *options.EntityOptions, limit bool) (*ir.Fragment, error) {
	key, err := ir.FragmentKey(s, opts.Fingerprint(), limit)
	if err != nil {
		return nil, ir.NewInvalidArgument("", err.Error())
	}

	compiled := false
	frag, err := f.cache.GetOrCompile(key, func() (*ir.Fragment, error) {
		compiled = true
		return f.compiler.Compile(s, opts, limit)
	})
	if err != nil {
		f.logger.Debug("fragment compile failed",
			"record", s.Record,
			"error", err)
		return nil, err
	}

	if compiled {
		f.logger.Debug("fragment compiled",
			"record", s.Record,
			"columns", len(s.Columns),
			"unmapped", len(s.Unmapped),
			"limit", limit,
			"key", key[:12])
	} else {
		f.logger.Debug("fragment cache hit",
			"record", s.Record,
			"key", key[:12])
	}
	return frag, nil
}

// Prepare compiles s and serializes src against it. It is the common path
// of Scalars and Records, and serves records declared without a Go type.
func (f *Factory) Prepare(s *ir.Shape, src payload.Source, req Request) (*Values, error) {
	frag, err := f.Fragment(s, req.Options, req.Limit)
	if err != nil {
		return nil, err
	}

	doc, err := payload.Serialize(s, src)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", s.Record, err)
	}

	return &Values{
		Fragment: frag,
		Shape:    s,
		Payload:  string(doc),
		Count:    src.Len(),
	}, nil
}

// Scalars prepares a sequence of scalar values. Options, when set, must
// come from options.ForScalar.
func Scalars[T any](f *Factory, values []T, req Request) (*Values, error) {
	if len(req.Projection) > 0 {
		return nil, ir.NewInvalidArgument("", "scalar sequences have no properties to project")
	}

	s, err := shape.ScalarOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	src, err := payload.Scalars(values)
	if err != nil {
		return nil, err
	}
	return f.Prepare(s, src, req)
}

// Records prepares a sequence of structs (or struct pointers).
func Records[T any](f *Factory, values []T, req Request) (*Values, error) {
	record, err := shape.OfType[T]()
	if err != nil {
		return nil, err
	}
	return prepareRecord(f, record, values, req)
}

// prepareRecord prepares values of a resolved struct record.
func prepareRecord(f *Factory, record *shape.Record, values any, req Request) (*Values, error) {
	if req.OmitUnmapped {
		record = record.WithoutUnmapped()
	}
	s, err := record.Project(req.Projection...)
	if err != nil {
		return nil, err
	}
	src, err := payload.Slice(values)
	if err != nil {
		return nil, err
	}
	return f.Prepare(s, src, req)
}
