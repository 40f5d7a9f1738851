package main

import (
	"fmt"

	"github.com/snow-ghost/sleuth/worker"
	"github.com/spf13/cobra"
)

func (a *app) newOnceCmd() *cobra.Command {
	var passes int
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run orchestrator passes and print their outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *worker.Engine) error {
				if _, err := e.Orchestrator.Recover(cmd.Context()); err != nil {
					return err
				}
				for i := 0; i < passes; i++ {
					outcome, err := e.Orchestrator.RunOnce(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), outcome)
					if outcome == worker.OutcomeIdle {
						break
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&passes, "passes", "n", 1, "maximum number of passes")
	return cmd
}
