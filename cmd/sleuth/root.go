package main

import (
	"context"
	"fmt"

	"github.com/snow-ghost/sleuth/pkg/logging"
	"github.com/snow-ghost/sleuth/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the flags shared by every subcommand.
type app struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sleuth",
		Short: "Autonomous research engine",
		Long: `sleuth answers open questions by formulating hypotheses, planning atomic
tasks and checking each task with a skill program it finds or writes.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "sleuth.yaml", "configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		a.newRunCmd(),
		a.newOnceCmd(),
		a.newAskCmd(),
		a.newSeedCmd(),
		a.newStatusCmd(),
		a.newSkillsCmd(),
	)
	return root
}

func (a *app) loadConfig() (*worker.Config, error) {
	config, err := worker.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.verbose {
		config.Logging.Level = "debug"
	}
	return config, nil
}

// engine builds a wired engine from the configuration file. The caller
// closes it.
func (a *app) engine(ctx context.Context) (*worker.Engine, error) {
	config, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	e, err := worker.NewEngine(ctx, config, logger, nil)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return e, nil
}

// withEngine runs fn with an engine and closes it afterwards.
func (a *app) withEngine(ctx context.Context, fn func(*worker.Engine) error) error {
	e, err := a.engine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(context.WithoutCancel(ctx)); err != nil {
			e.Logger.Warn("failed to close engine", zap.Error(err))
		}
		_ = e.Logger.Sync()
	}()
	return fn(e)
}
