// Command taxa browses a taxonomy tree beside a filtered, paged species
// listing, and ships the import, export and serve tooling around it.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/debug"
	"github.com/vanderheijden86/taxa/pkg/logging"
	"github.com/vanderheijden86/taxa/pkg/version"
)

// phaseError tags a failure with the step that produced it.
type phaseError struct {
	Phase string
	Err   error
}

func (e *phaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *phaseError) Unwrap() error {
	return e.Err
}

func inPhase(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &phaseError{Phase: phase, Err: err}
}

// app carries what every subcommand shares.
type app struct {
	configPath string
	logLevel   string
	cpuProfile string

	cfg config.Config
	log *logrus.Logger

	stopProfile func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var pe *phaseError
		if errors.As(err, &pe) && pe.Phase == "config" {
			fmt.Fprintln(os.Stderr, "Run 'taxa init' to write a fresh config.")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "taxa [url | store | files...]",
		Short: "Browse a taxonomy tree and its species listing",
		Long: `taxa shows a collapsible taxonomy tree beside a paged species listing.
Selecting a taxon narrows the listing; free-text search and sorting
combine with it.

With no arguments the configured listing service is used. Pass a service
URL, a store (.db file or postgres:// URL) or CSV/JSONL record files to
browse those instead.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.stopProfile != nil {
				a.stopProfile()
			}
		},
	}
	root.SetVersionTemplate("taxa {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigPath()+")")
	pf.StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.StringVar(&a.cpuProfile, "cpu-profile", "", "write a CPU profile to file")

	browse := newBrowseCmd(a)
	root.Args = browse.Args
	root.RunE = browse.RunE
	root.Flags().AddFlagSet(browse.Flags())

	root.AddCommand(
		browse,
		newServeCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds the stderr logger. Browse swaps the
// logger for a file one before taking over the terminal.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	// init repairs broken configs, so it starts from whatever parsed.
	if err != nil && cmd.Name() != "init" {
		return inPhase("config", err)
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}

	a.log, err = logging.New(a.cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return inPhase("config", err)
	}
	if a.logLevel == "debug" {
		debug.SetEnabled(true)
		debug.SetOutput(cmd.ErrOrStderr())
	}

	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.stopProfile = func() {
			pprof.StopCPUProfile()
			f.Close()
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taxa version",
		Args:  cobra.NoArgs,
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taxa %s\n", version.Version)
		},
	}
}
