package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var captureFlag string
	var formatFlag string
	var forceFlag bool

	ctx := newCommandContext(&configFlag, &captureFlag, &formatFlag, &forceFlag)

	rootCmd := &cobra.Command{
		Use:           "manifold",
		Short:         "Multi-sensor capture extraction pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&captureFlag, "capture", "", "Capture recording to extract from")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "capture-format", "replay", "Capture container format backend")
	rootCmd.PersistentFlags().BoolVar(&forceFlag, "force", false, "Clear prior completion markers and re-run")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newManifestCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
