package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/app"
	"github.com/crimeatlas/crimes-grabber/internal/config"
	"github.com/crimeatlas/crimes-grabber/internal/logging"
)

var cfgFile string

// runtimeKeyType is the key for storing the Runtime in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// Runtime bundles the services the root hooks build for subcommands: the
// loaded configuration, the process logger, and the wired application
// container. The database handle is not here; it is scoped to the run.
type Runtime struct {
	Config  config.Config
	Logger  *zap.Logger
	App     *app.App
	cleanup func()
}

func (r *Runtime) close() {
	if r == nil {
		return
	}
	if r.App != nil {
		r.App.Close()
	}
	if r.cleanup != nil {
		r.cleanup()
	}
}

// newRuntime is the service factory. It is a variable so tests can swap in a
// stub runtime without touching real providers.
var newRuntime func(ctx context.Context, cfgPath string) (*Runtime, error) = func(ctx context.Context, cfgPath string) (*Runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, cleanup, err := logging.New(logging.Config{
		Dir:         cfg.Log.Dir,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("initialize application services: %w", err)
	}

	return &Runtime{Config: cfg, Logger: logger, App: application, cleanup: cleanup}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crimesgrabber",
		Short: "FBI Crime Data Explorer statistics grabber.",
		Long: `crimesgrabber pulls arrest statistics for one state from the FBI
Crime Data Explorer API, replaces the destination Postgres tables,
renders a summary chart artifact, and publishes a run report.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		// This hook runs AFTER flag parsing but BEFORE the subcommand's RunE,
		// so every subcommand finds a fully wired runtime in its context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), runtimeKey, rt)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*Runtime); ok {
				rt.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (CRIMES_* env vars apply when unset)")

	cmd.AddCommand(newGrabCmd())

	return cmd
}

// Execute runs the CLI under the given base context. The caller decides what
// a non-nil error means for the process exit code.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
