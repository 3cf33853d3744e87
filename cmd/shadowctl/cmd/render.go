package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	bridge "github.com/atdiar/particlebridge"
	"github.com/atdiar/particlebridge/drivers/dom"
	"github.com/atdiar/particlebridge/script"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRenderCmd(o *options) *cobra.Command {
	var adapters bool
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render replays a script into an html document.",
		Long: `
		Render replays every batch of a script through the reconciler, with the
		html driver, and writes the resulting document.
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireDriver("render", "dom"); err != nil {
				return err
			}
			path, err := o.script()
			if err != nil {
				return err
			}
			var dump io.Writer
			if adapters {
				dump = cmd.ErrOrStderr()
			}
			return o.renderTo(cmd.Context(), path, cmd.OutOrStdout(), dump)
		},
	}
	renderCmd.Flags().StringP("out", "o", "-", "output file, - for stdout")
	renderCmd.Flags().Bool("pretty", true, "indent the html")
	renderCmd.Flags().BoolVar(&adapters, "adapters", false, "dump the adapter tree to stderr")
	return renderCmd
}

// renderTo renders the script at path into the configured output, stdout
// being the "-" output. The adapter tree is written to dump when not nil.
func (o *options) renderTo(ctx context.Context, path string, stdout, dump io.Writer) error {
	doc, r, err := o.replay(ctx, path)
	if err != nil {
		return err
	}
	if dump != nil {
		if err := r.Dump(dump); err != nil {
			return err
		}
	}

	w := stdout
	if o.cfg.Output != "-" && o.cfg.Output != "" {
		f, err := os.Create(o.cfg.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if o.cfg.Pretty {
		err = doc.Render(w)
	} else {
		err = doc.RenderCompact(w)
	}
	if err != nil {
		return fmt.Errorf("failed to write the document: %w", err)
	}
	o.log.InfoContext(ctx, "document written", "script", path, "output", o.cfg.Output)
	return nil
}

// replay applies every batch of the script at path to a new document, on the
// UI loop of a new renderer.
func (o *options) replay(ctx context.Context, path string) (*dom.Document, *bridge.Renderer, error) {
	s, err := script.LoadFile(path, dom.Factory)
	if err != nil {
		return nil, nil, err
	}
	r := bridge.NewRenderer(bridge.WithLogger(o.log), bridge.WithTracerProvider(o.tp))
	doc := dom.NewDocument(s.Title)
	r.Mount(s.Root, doc)

	d := r.Dispatcher()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error {
		defer d.Close()
		for i, b := range s.Batches {
			if err := r.Render(gctx, b); err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return doc, r, nil
}
