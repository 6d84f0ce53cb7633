package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/taxa/internal/datasource"
	"github.com/vanderheijden86/taxa/internal/server"
)

type serveOptions struct {
	addr  string
	watch bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve [store | files...]",
		Short: "Serve /collections and /items over HTTP",
		Long: `serve answers the listing protocol from the configured store, or from
the given store or record files. Record files are loaded into memory and,
with --watch, reloaded whenever they change.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "listen address (default server.addr)")
	f.BoolVar(&opts.watch, "watch", false, "reload record files when they change")
	return cmd
}

func runServe(ctx context.Context, a *app, args []string, opts serveOptions) error {
	var (
		ds  datasource.DataSource
		err error
	)
	if len(args) == 0 {
		ds, err = datasource.ResolveStore(a.cfg)
	} else {
		ds, err = datasource.Resolve(args, a.cfg)
	}
	if err != nil {
		return inPhase("resolve", err)
	}
	if ds.Type == datasource.SourceTypeAPI {
		return inPhase("resolve", errServeRemote)
	}

	sess, err := datasource.OpenSession(ctx, ds, a.cfg, a.log,
		datasource.WithHierarchyDepth(a.cfg.Server.HierarchyDepth))
	if err != nil {
		return inPhase("open", err)
	}
	defer sess.Close()

	srv := server.New(sess.Source, a.cfg.Server,
		server.WithLogger(a.log),
		server.WithDefaultPageSize(a.cfg.Listing.PageSize),
	)

	if opts.watch && sess.Files != nil {
		changes, stopWatch, err := watchFiles(sess.Files.Paths(), a.log)
		if err != nil {
			return inPhase("watch", err)
		}
		defer stopWatch()
		go reloadOnChange(ctx, a, sess.Files, srv, changes)
	}

	addr := opts.addr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	a.log.WithField("source", ds.String()).Info("serving taxonomy")
	return inPhase("serve", srv.Listen(ctx, addr))
}

var errServeRemote = errors.New("serve needs a local store or record files, not a service URL")

// reloadOnChange re-imports the record files after each change and drops
// cached responses. A failed reload keeps serving the previous contents.
func reloadOnChange(ctx context.Context, a *app, files *datasource.FileSet, srv *server.Server, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
		}
		tree, err := files.Reload(ctx)
		if err != nil {
			a.log.WithError(err).Error("reload failed, keeping previous records")
			continue
		}
		srv.Purge()
		a.log.WithField("records", tree.Total()).Info("records reloaded")
	}
}
