package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/queryvalues/internal/config"
	"github.com/roach88/queryvalues/internal/payload"
	"github.com/roach88/queryvalues/internal/queryable"
)

// SerializeOptions holds flags for the serialize command.
type SerializeOptions struct {
	*RootOptions
	Entity  string
	Input   string // JSON or YAML file of rows, "-" for stdin
	Project []string
	Top     bool
}

// SerializeResult is the bound query text and payload for a set of rows.
type SerializeResult struct {
	Entity  string `json:"entity"`
	SQL     string `json:"sql"`
	Payload string `json:"payload"`
	Count   int    `json:"count"`
}

// NewSerializeCommand creates the serialize command.
func NewSerializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SerializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serialize <config>",
		Short: "Serialize rows into the payload of an entity",
		Long: `Read rows for one entity and print the payload to bind with its fragment.

Rows are a JSON or YAML list of objects keyed by property name. Values are
read as the property's kind. A missing key is NULL, which only nullable
properties accept.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSerialize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Entity, "entity", "e", "", "entity the rows belong to")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "-", "rows file (.json, .yaml, .yml) or - for stdin JSON")
	cmd.Flags().StringSliceVarP(&opts.Project, "project", "p", nil, "properties read by the query")
	cmd.Flags().BoolVar(&opts.Top, "top", false, "compile with the SELECT TOP row-limit")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runSerialize(opts *SerializeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, "loading config", err)
	}
	e, err := cfg.Entity(opts.Entity)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidFlags, "unknown entity", err)
	}

	rows, err := readRows(opts.Input, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "reading rows", err)
	}
	formatter.VerboseLog("Read %d rows from %s", len(rows), opts.Input)

	s, err := e.Record.Project(opts.Project...)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeInvalidFlags, "projecting", err)
	}

	factory := queryable.NewFactory(queryable.WithLogger(opts.Logger()))
	v, err := factory.Prepare(s, payload.Maps(rows), queryable.Request{Options: e.Options, Limit: opts.Top})
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeInput, "serializing rows", err)
	}

	sql, _ := v.Bind(queryable.PayloadParam, queryable.CountParam)
	result := SerializeResult{Entity: opts.Entity, SQL: sql, Payload: v.Payload, Count: v.Count}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "-- %s, %d rows\n%s\n\n", result.Entity, result.Count, result.SQL)
	fmt.Fprintf(formatter.Writer, "-- @%s\n%s\n", queryable.PayloadParam, result.Payload)
	return nil
}

// readRows decodes a list of row objects. JSON numbers stay json.Number so
// decimals and 64-bit integers keep every digit.
func readRows(input string, stdin io.Reader) ([]map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	switch strings.ToLower(filepath.Ext(input)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode yaml rows: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode json rows: %w", err)
		}
	}
	return rows, nil
}
