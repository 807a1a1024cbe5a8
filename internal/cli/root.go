// Package cli is the command line front end: a synchronous one-shot run and a
// watcher for runs executed by the REST service.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ai-codereview-be/internal/bootstrap"
	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/orchestrator"
	"ai-codereview-be/internal/pkg/logger"

	"github.com/spf13/cobra"
)

// Runner executes one orchestration
type Runner interface {
	Run(ctx context.Context, initial entity.SessionState, cb *orchestrator.Callbacks) (entity.SessionState, error)
}

// Deps are the seams tests replace
type Deps struct {
	LoadConfig func(envFiles ...string) *config.Config
	NewRunner  func(cfg *config.Config, log logger.ILogger) Runner
	NewLogger  func(cfg *config.Config) logger.ILogger
}

func DefaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewRunner: func(cfg *config.Config, log logger.ILogger) Runner {
			return bootstrap.NewEngine(cfg, nil, log)
		},
		NewLogger: func(cfg *config.Config) logger.ILogger {
			// file only, so stdout stays clean for the final state JSON
			return logger.NewIsolatedLogger(cfg.App.LogFilePath)
		},
	}
}

func NewRootCmd(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "review",
		Short: "Writer/reviewer code review loop",
		Long: `review drives a writer model and a panel of reviewer models over a set
of target files until the reviewers are satisfied or the review cycle
budget runs out.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSlice("env-file", nil, "env file(s) to load before the process environment (default .env)")

	root.AddCommand(newRunCmd(deps))
	root.AddCommand(newWatchCmd(deps))
	return root
}

// Execute runs the CLI with the real dependencies
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd(DefaultDeps()).ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, deps Deps) *config.Config {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	return deps.LoadConfig(envFiles...)
}
