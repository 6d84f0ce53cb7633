package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/taxa/internal/datasource"
	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/loader"
)

type importOptions struct {
	driver string
	dsn    string
	strict bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Load CSV or JSONL records into the store",
		Long: `import parses the record files, builds the taxonomy and replaces the
store contents in one transaction. Records without a full rank chain are
skipped with a warning; --strict turns any warning into an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := runImport(cmd.Context(), a, args, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %d collections (%d closure rows)\n",
				stats.Records, stats.Collections, stats.Closure)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.driver, "driver", "", "store driver: sqlite or postgres (default store.driver)")
	f.StringVar(&opts.dsn, "dsn", "", "store DSN (default store.dsn)")
	f.BoolVar(&opts.strict, "strict", false, "fail when any record is skipped")
	return cmd
}

func runImport(ctx context.Context, a *app, paths []string, opts importOptions) (datasource.ImportStats, error) {
	var none datasource.ImportStats

	driverName, dsn := a.cfg.Store.Driver, a.cfg.Store.DSN
	if opts.driver != "" {
		driverName = opts.driver
	}
	if opts.dsn != "" {
		dsn = opts.dsn
	}
	driver, err := datasource.ParseDriver(driverName)
	if err != nil {
		return none, inPhase("config", err)
	}

	cols := loader.ColumnsFromConfig(a.cfg.Import)
	var warnings []string
	records, results, err := loader.LoadFiles(ctx, paths, loader.ParseOptions{
		Columns:        cols,
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		return none, inPhase("load", err)
	}
	for _, r := range results {
		a.log.WithField("path", r.Path).WithField("records", r.Records).Info("loaded record file")
	}

	tree, skipped := hierarchy.NewBuilder(
		hierarchy.WithLevels(cols.RankNames()),
		hierarchy.WithLogger(a.log),
	).Build(records)
	for _, w := range skipped {
		warnings = append(warnings, w.String())
	}
	for _, w := range warnings {
		a.log.Warn(w)
	}
	if opts.strict && len(warnings) > 0 {
		return none, inPhase("build", fmt.Errorf("%d warning(s), first: %s", len(warnings), warnings[0]))
	}

	if driver == datasource.DriverSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return none, inPhase("open", err)
		}
	}
	store, err := datasource.Open(ctx, driver, dsn, datasource.WithLogger(a.log))
	if err != nil {
		return none, inPhase("open", err)
	}
	defer store.Close()

	stats, err := store.Import(ctx, tree)
	if err != nil {
		return none, inPhase("import", err)
	}
	return stats, nil
}
