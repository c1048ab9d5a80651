package main

import (
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	params := newManifestParamFlags()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: extract every sensor, merge, write the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			if err := p.Acquire(cmd.Context()); err != nil {
				return err
			}
			defer p.Release()

			src, err := ctx.openSource(cmd.Context())
			if err != nil {
				return err
			}
			defer src.Close()

			cfg, _ := ctx.ensureConfig()
			return p.RunAll(cmd.Context(), src, params.build(cfg))
		},
	}
	params.register(cmd)
	return cmd
}
