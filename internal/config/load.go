package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Load reads and validates a config file. A directory is loaded as a CUE
// package.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config not found: %w", err)
	}
	if info.IsDir() {
		f, err := decodeCUEDir(path)
		if err != nil {
			return nil, err
		}
		return Build(path, f)
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, format, data)
}

// Parse decodes data in the given format and validates it.
func Parse(source string, format Format, data []byte) (*Config, error) {
	f, err := Decode(source, format, data)
	if err != nil {
		return nil, err
	}
	return Build(source, f)
}

// Decode decodes data without validating the declarations. Unknown keys
// are rejected in every format.
func Decode(source string, format Format, data []byte) (*File, error) {
	f := &File{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: decode yaml: %w", source, err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("%s: decode toml: %w", source, err)
		}
	case FormatCUE:
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(source))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%s: compile cue: %s", source, cueerrors.Details(err, nil))
		}
		return decodeCUE(ctx, source, v)
	default:
		return nil, fmt.Errorf("%s: unknown format %q", source, format)
	}
	return f, nil
}

func decodeCUEDir(dir string) (*File, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("%s: no CUE instances loaded", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("%s: loading CUE files: %w", dir, inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%s: building CUE value: %s", dir, cueerrors.Details(err, nil))
	}
	return decodeCUE(ctx, dir, v)
}

// decodeCUE checks v against the embedded #Config schema and decodes it.
func decodeCUE(ctx *cue.Context, source string, v cue.Value) (*File, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s: %s", source, cueerrors.Details(err, nil))
	}

	f := &File{}
	if err := unified.Decode(f); err != nil {
		return nil, fmt.Errorf("%s: decode cue: %w", source, err)
	}
	return f, nil
}
