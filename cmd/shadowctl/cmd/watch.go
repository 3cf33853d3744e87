package cmd

import (
	"context"
	"io"
	"sync"

	"github.com/atdiar/particlebridge/internal/config"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd(o *options) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "watch renders a script again every time it changes.",
		Long: `
		Watch renders a script with the html driver, then renders it again
		every time the script file is saved, until interrupted.
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireDriver("watch", "dom"); err != nil {
				return err
			}
			path, err := o.script()
			if err != nil {
				return err
			}
			return o.watch(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
	watchCmd.Flags().StringP("out", "o", "-", "output file, - for stdout")
	watchCmd.Flags().Bool("pretty", true, "indent the html")
	return watchCmd
}

// watch renders the script at path once, then on every change until ctx is
// done. A script that fails to render is reported and watched further.
func (o *options) watch(ctx context.Context, path string, stdout io.Writer) error {
	var mu sync.Mutex
	render := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := o.renderTo(ctx, path, stdout, nil); err != nil {
			o.log.ErrorContext(ctx, "render failed", "script", path, "error", err)
		}
	}
	render()
	return config.Watch(ctx, path, o.cfg.Watch.Debounce, o.log, func(ev fsnotify.Event) {
		o.log.InfoContext(ctx, "script changed", "script", path, "op", ev.Op.String())
		render()
	})
}
