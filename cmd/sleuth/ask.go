package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/snow-ghost/sleuth/worker"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newAskCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Queue a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(e *worker.Engine) error {
				q, score, err := e.Orchestrator.Submit(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tscore=%.2f\n", q.ID, score.Value)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the novelty check")
	return cmd
}

func (a *app) newSeedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Queue every question of a YAML list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := readQuestions(args[0])
			if err != nil {
				return err
			}
			return a.withEngine(cmd.Context(), func(e *worker.Engine) error {
				out := cmd.OutOrStdout()
				accepted := 0
				for _, text := range questions {
					q, score, err := e.Orchestrator.Submit(cmd.Context(), text, force)
					switch {
					case errors.Is(err, worker.ErrNotNovel), errors.Is(err, worker.ErrInvalidQuestion):
						fmt.Fprintf(out, "skipped\t%s\t%v\n", text, err)
					case err != nil:
						return err
					default:
						accepted++
						fmt.Fprintf(out, "%s\tscore=%.2f\t%s\n", q.ID, score.Value, q.Description)
					}
				}
				fmt.Fprintf(out, "queued %d of %d questions\n", accepted, len(questions))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the novelty check")
	return cmd
}

// readQuestions parses a YAML sequence of question strings.
func readQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var questions []string
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return questions, nil
}
