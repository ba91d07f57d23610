// Package main implements the ingest command line tool. It normalizes a
// configuration directory together with state snapshots and change-set
// documents into one JSON document stream on stdout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/terrascope/ingest/internal/ingest"
	"github.com/terrascope/ingest/internal/parser"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type options struct {
	dir     string
	states  []string
	plans   []string
	pretty  bool
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Normalize infrastructure artifacts into indexable documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "configuration directory to parse")
	cmd.Flags().StringArrayVar(&opts.states, "state", nil, "state snapshot file (repeatable)")
	cmd.Flags().StringArrayVar(&opts.plans, "plan", nil, "change-set file (repeatable)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	level := hclog.Warn
	if opts.verbose {
		level = hclog.Debug
	}
	log := hclog.New(&hclog.LoggerOptions{
		Name:   "ingest",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})

	batch := ingest.Batch{}

	if opts.dir != "" {
		files, err := parser.ReadConfigDir(opts.dir)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			batch.ConfigFiles = append(batch.ConfigFiles, ingest.Artifact{Name: name, Source: files[name]})
		}
		log.Debug("configuration loaded", "dir", opts.dir, "files", len(names))
	}

	for _, path := range opts.states {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		batch.States = append(batch.States, ingest.Artifact{Name: path, Source: src})
	}
	for _, path := range opts.plans {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		batch.Plans = append(batch.Plans, ingest.Artifact{Name: path, Source: src})
	}

	svc := ingest.New(ingest.WithLogger(log))
	res, err := svc.Run(cmd.Context(), batch)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return err
	}

	if len(res.Errors) > 0 {
		for _, ae := range res.Errors {
			log.Warn("artifact failed", "artifact", ae.Artifact, "kind", ae.Kind, "error", ae.Message)
		}
		return fmt.Errorf("%d of %d artifacts failed",
			len(res.Errors),
			len(batch.ConfigFiles)+len(batch.States)+len(batch.Plans))
	}
	return nil
}
