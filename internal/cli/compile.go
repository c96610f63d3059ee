package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-pkgz/syncs"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/queryvalues/internal/config"
	"github.com/roach88/queryvalues/internal/queryable"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Entities    []string // entities to compile, all when empty
	Project     []string // projected properties, single entity only
	Top         bool
	Bind        bool
	Concurrency int
}

// CompiledEntity is the compile result for one entity.
type CompiledEntity struct {
	Entity   string   `json:"entity"`
	Columns  []string `json:"columns"`
	Unmapped []string `json:"unmapped,omitempty"`
	Top      bool     `json:"top"`
	SQL      string   `json:"sql"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config>",
		Short: "Print the OPENJSON fragment of each entity",
		Long: `Compile the entities declared in a config file to SQL fragments.

The fragment reads the payload placeholder {0} and, with --top, the element
count placeholder {1}. With --bind the placeholders are replaced by the
parameter names used at query time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Entities, "entity", "e", nil, "entity to compile (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.Project, "project", "p", nil, "properties read by the query")
	cmd.Flags().BoolVar(&opts.Top, "top", false, "compile with the SELECT TOP row-limit")
	cmd.Flags().BoolVar(&opts.Bind, "bind", false, "render @"+queryable.PayloadParam+" and @"+queryable.CountParam+" instead of placeholders")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", runtime.NumCPU(), "entities compiled in parallel")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, "loading config", err)
	}
	formatter.VerboseLog("Loaded %d entities from %s", cfg.Len(), path)

	names := opts.Entities
	if len(names) == 0 {
		names = cfg.Names()
	}
	if len(opts.Project) > 0 && len(names) != 1 {
		return formatter.fail(ExitCommandError, ErrCodeInvalidFlags, "--project needs exactly one --entity", nil)
	}

	results, err := compileEntities(ctx, opts, cfg, names)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeConfig, "compiling entities", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprintf(formatter.Writer, "-- %s\n%s\n", r.Entity, r.SQL)
	}
	return nil
}

// compileEntities compiles names concurrently through one shared factory.
// Results keep the order of names.
func compileEntities(ctx context.Context, opts *CompileOptions, cfg *config.Config, names []string) ([]CompiledEntity, error) {
	factory := queryable.NewFactory(queryable.WithLogger(opts.Logger()))

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]CompiledEntity, len(names))
	errs := make([]error, len(names))

	wg := syncs.NewErrSizedGroup(concurrency, syncs.Context(ctx), syncs.Preemptive)
	for i, name := range names {
		wg.Go(func() error {
			r, err := compileEntity(factory, cfg, name, opts)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
				return errs[i]
			}
			results[i] = r
			return nil
		})
	}
	if wg.Wait() == nil {
		return results, nil
	}

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr == nil {
		return nil, ctx.Err()
	}
	return nil, merr
}

func compileEntity(factory *queryable.Factory, cfg *config.Config, name string, opts *CompileOptions) (CompiledEntity, error) {
	e, err := cfg.Entity(name)
	if err != nil {
		return CompiledEntity{}, err
	}
	s, err := e.Record.Project(opts.Project...)
	if err != nil {
		return CompiledEntity{}, err
	}
	frag, err := factory.Fragment(s, e.Options, opts.Top)
	if err != nil {
		return CompiledEntity{}, err
	}

	text := frag.Text()
	if opts.Bind {
		text = frag.Render("@"+queryable.PayloadParam, "@"+queryable.CountParam)
	}

	columns := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		columns[i] = c.Column
	}
	return CompiledEntity{
		Entity:   name,
		Columns:  columns,
		Unmapped: s.UnmappedColumns(),
		Top:      opts.Top,
		SQL:      text,
	}, nil
}
