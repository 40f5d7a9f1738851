package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/snow-ghost/sleuth/worker"
	"github.com/spf13/cobra"
)

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print entity counts per status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *worker.Engine) error {
				s, err := e.Orchestrator.Summary(cmd.Context())
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), s)
			})
		},
	}
}

func printSummary(out io.Writer, s worker.Summary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tSTATUS\tCOUNT")
	writeCounts(w, "question", s.Questions)
	writeCounts(w, "hypothesis", s.Hypotheses)
	writeCounts(w, "task", s.Tasks)
	writeCounts(w, "skill", s.Skills)
	return w.Flush()
}

func writeCounts[K ~string](w io.Writer, entity string, counts map[K]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%d\n", entity, k, counts[K(k)])
	}
}

func (a *app) newSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage the skill tree",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Register every described file of the skill tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *worker.Engine) error {
				n, err := e.Resolver.ImportTree(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d skills\n", n)
				return nil
			})
		},
	})
	return cmd
}
