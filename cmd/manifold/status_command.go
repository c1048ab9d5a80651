package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-step completion state for the configured output root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			states, err := p.States(cmd.Context())
			if err != nil {
				return err
			}

			color := shouldColorize(cmd.OutOrStdout())
			rows := make([][]string, 0, len(states))
			for _, state := range states {
				stateLabel := colorize("pending", ansiYellow, color)
				records, bytes := "-", "-"
				if state.Done {
					stateLabel = colorize("done", ansiGreen, color)
					if state.Summary != nil {
						records = strconv.FormatInt(state.Summary.Count, 10)
						bytes = strconv.FormatInt(state.Summary.Bytes, 10)
					}
				}
				rows = append(rows, []string{state.Step, stateLabel, records, bytes})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Step", "State", "Records", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}
