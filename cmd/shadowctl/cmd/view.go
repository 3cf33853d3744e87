package cmd

import (
	"context"

	bridge "github.com/atdiar/particlebridge"
	term "github.com/atdiar/particlebridge/drivers/terminal"
	"github.com/atdiar/particlebridge/script"
	"github.com/spf13/cobra"
)

func newViewCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "view steps through a script in the terminal.",
		Long: `
		View displays the physical tree of a script in the terminal, whatever
		the configured driver. Press n to apply the next batch and q to quit.
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.script()
			if err != nil {
				return err
			}
			return o.view(cmd.Context(), path)
		},
	}
}

// view runs the terminal app on the script at path until it is quit or ctx
// is done.
func (o *options) view(ctx context.Context, path string) error {
	s, err := script.LoadFile(path, term.Factory)
	if err != nil {
		return err
	}
	r := bridge.NewRenderer(bridge.WithLogger(o.log), bridge.WithTracerProvider(o.tp))
	return term.NewApp(r, s.Root, s.Batches, nil, o.log).Run(ctx)
}
