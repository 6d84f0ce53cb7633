package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/taxa/internal/datasource"
	"github.com/vanderheijden86/taxa/pkg/debug"
	"github.com/vanderheijden86/taxa/pkg/logging"
	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/ui"
	"github.com/vanderheijden86/taxa/pkg/watcher"
)

type browseOptions struct {
	metrics bool
	noWatch bool
	view    string
}

func newBrowseCmd(a *app) *cobra.Command {
	var opts browseOptions
	cmd := &cobra.Command{
		Use:   "browse [url | store | files...]",
		Short: "Open the tree and listing browser (default)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd.Context(), a, args, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.metrics, "metrics", false, "print timing metrics on exit")
	f.BoolVar(&opts.noWatch, "no-watch", false, "do not reload record files when they change")
	f.StringVar(&opts.view, "view", "", "initial listing view: table or gallery")
	return cmd
}

func runBrowse(ctx context.Context, a *app, args []string, opts browseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.view != "" {
		a.cfg.UI.DefaultView = opts.view
	}
	if opts.metrics {
		metrics.SetEnabled(true)
	}

	ds, err := datasource.Resolve(args, a.cfg)
	if err != nil {
		return inPhase("resolve", err)
	}

	// The TUI owns the terminal from here on.
	log, closeLog := tuiLogger(a)
	defer closeLog()
	if debug.Enabled() {
		debug.SetOutput(log.WriterLevel(logrus.DebugLevel))
	}
	log.WithField("source", ds.String()).Info("browse session starting")

	sess, err := datasource.OpenSession(ctx, ds, a.cfg, log)
	if err != nil {
		return inPhase("open", err)
	}
	defer sess.Close()

	modelOpts := []ui.Option{
		ui.WithContext(ctx),
		ui.WithLogger(log),
		ui.WithSource(ds.String()),
	}
	if sess.Files != nil && !opts.noWatch {
		changes, stop, err := watchFiles(sess.Files.Paths(), log)
		if err != nil {
			log.WithError(err).Warn("live reload disabled")
		} else {
			defer stop()
			modelOpts = append(modelOpts, ui.WithFileReload(changes, func(ctx context.Context) error {
				_, err := sess.Files.Reload(ctx)
				for _, w := range sess.Files.Warnings() {
					log.Warn(w)
				}
				return err
			}))
		}
	}

	m := ui.NewModel(sess.Source, a.cfg, modelOpts...)
	if err := runTUIProgram(m); err != nil {
		return inPhase("tui", err)
	}

	if opts.metrics {
		return metrics.WriteSummary(os.Stdout)
	}
	return nil
}

// tuiLogger opens the log file. Without a usable path logs are dropped
// rather than written over the alternate screen.
func tuiLogger(a *app) (*logrus.Logger, func()) {
	path := a.cfg.LogPath()
	if path == "" {
		return logging.Discard(), func() {}
	}
	log, closer, err := logging.OpenFile(a.cfg.Log, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (logging disabled)\n", err)
		return logging.Discard(), func() {}
	}
	return log, func() { closer.Close() }
}

// watchFiles starts one watcher per record file and merges their change
// notifications into a single channel.
func watchFiles(paths []string, log logrus.FieldLogger) (<-chan struct{}, func(), error) {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	var started []*watcher.Watcher
	stop := func() {
		for _, w := range started {
			w.Stop()
		}
	}
	for _, p := range paths {
		w, err := watcher.New(p,
			watcher.WithOnChange(notify),
			watcher.WithOnError(func(err error) {
				log.WithError(err).WithField("path", p).Warn("watch error")
			}),
		)
		if err != nil {
			stop()
			return nil, nil, err
		}
		if err := w.Start(); err != nil {
			stop()
			return nil, nil, err
		}
		started = append(started, w)
	}
	return changes, stop, nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set TAXA_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TAXA_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
