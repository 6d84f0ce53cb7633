package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/taxa/internal/datasource"
	"github.com/vanderheijden86/taxa/pkg/export"
	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

type exportOptions struct {
	format   string
	out      string
	remote   string
	title    string
	maxDepth int
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions
	names := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}

	cmd := &cobra.Command{
		Use:   "export [store | files...]",
		Short: "Write the taxonomy as JSON, statistics or an outline chart",
		Long: `export reads the taxonomy from the configured store, the given store or
record files, or a listing service (--remote), and writes it in one of:
` + strings.Join(names, ", ") + `.

Text formats go to stdout unless --out is set. png requires --out.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), a, args, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", string(export.FormatCollections), "output format: "+strings.Join(names, "|"))
	f.StringVarP(&opts.out, "out", "o", "", "output file")
	f.StringVar(&opts.remote, "remote", "", "read the taxonomy from this listing service URL")
	f.StringVar(&opts.title, "title", "", "outline chart title")
	f.IntVar(&opts.maxDepth, "max-depth", 0, "outline chart depth limit (0 draws all levels)")
	return cmd
}

func runExport(ctx context.Context, a *app, args []string, opts exportOptions, stdout, stderr io.Writer) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return inPhase("config", err)
	}

	var tree *hierarchy.Tree
	if opts.remote != "" {
		var total int
		tree, total, err = loadRemote(ctx, a, opts.remote)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%s lists %d species in %d taxa\n", opts.remote, total, tree.Len())
	} else {
		tree, err = loadLocal(ctx, a, args)
		if err != nil {
			return err
		}
	}

	switch format {
	case export.FormatSVG, export.FormatPNG:
		if opts.out != "" {
			return inPhase("export", export.SaveOutline(tree, export.OutlineOptions{
				Path:     opts.out,
				Format:   format,
				Title:    opts.title,
				MaxDepth: opts.maxDepth,
			}))
		}
		if format == export.FormatPNG {
			return inPhase("export", fmt.Errorf("png output needs --out"))
		}
		outline := export.BuildOutline(tree, export.OutlineOptions{Title: opts.title, MaxDepth: opts.maxDepth})
		return inPhase("export", export.RenderOutlineSVG(stdout, outline))
	}

	w := stdout
	if opts.out != "" {
		if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
			return inPhase("export", err)
		}
		f, err := os.Create(opts.out)
		if err != nil {
			return inPhase("export", err)
		}
		defer f.Close()
		w = f
	}
	return inPhase("export", export.Write(w, tree, format))
}

// loadLocal rebuilds the tree from a store or record files, defaulting to
// the configured store.
func loadLocal(ctx context.Context, a *app, args []string) (*hierarchy.Tree, error) {
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
		return nil, inPhase("resolve", err)
	}
	if ds.Type == datasource.SourceTypeAPI {
		return nil, inPhase("resolve", fmt.Errorf("use --remote %s to export from a service", ds.Location))
	}

	sess, err := datasource.OpenSession(ctx, ds, a.cfg, a.log)
	if err != nil {
		return nil, inPhase("open", err)
	}
	defer sess.Close()

	tree, err := sess.Store.Tree(ctx)
	if err != nil {
		return nil, inPhase("load", err)
	}
	return tree, nil
}

// loadRemote fetches the collections tree and the first listing page in
// parallel. The page total is the number of species the service reports.
func loadRemote(ctx context.Context, a *app, baseURL string) (*hierarchy.Tree, int, error) {
	client, err := listing.NewClient(baseURL,
		listing.WithTimeout(a.cfg.API.Timeout),
		listing.WithClientLogger(a.log))
	if err != nil {
		return nil, 0, inPhase("resolve", err)
	}

	var (
		tree  *hierarchy.Tree
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := listing.LoadTree(gctx, client)
		if err != nil {
			return err
		}
		tree = t
		return nil
	})
	g.Go(func() error {
		page, err := client.Items(gctx, viewstate.QueryState{PageSize: max(a.cfg.Listing.PageSize, 1)})
		if err != nil {
			return err
		}
		total = page.Total
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, inPhase("fetch", err)
	}
	return tree, total, nil
}
