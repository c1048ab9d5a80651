package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"manifold/internal/extract"
)

func extractSpecsByKind() map[string]extract.Spec {
	specs := map[string]extract.Spec{}
	for _, spec := range extract.Steps() {
		kind := strings.TrimPrefix(spec.Step, "extract_")
		specs[kind] = spec
	}
	return specs
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	specs := extractSpecsByKind()
	kinds := make([]string, 0, len(specs))
	for kind := range specs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	cmd := &cobra.Command{
		Use:       "extract <kind>",
		Short:     "Run one extraction step (" + strings.Join(kinds, "|") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, ok := specs[args[0]]
			if !ok {
				return fmt.Errorf("unknown sensor kind %q (choose from %s)", args[0], strings.Join(kinds, ", "))
			}
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

			return p.RunExtraction(cmd.Context(), src, spec)
		},
	}
	return cmd
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge completed sensor streams into events.jsonl",
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

			return p.RunMerge(cmd.Context())
		},
	}
}
