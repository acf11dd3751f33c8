package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rehearse/internal/api"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	userID  string
	field   string
	verbose bool
}

func newRootCmd() *cobra.Command {
	local, err := config.LoadLocalConfig()
	if err != nil {
		local = config.DefaultLocalConfig()
	}

	opts := &options{}
	cmd := &cobra.Command{
		Use:           "rehearse",
		Short:         "Mock interview practice for SWE, QF and IB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.userID, "user", local.Practice.UserID, "user ID")
	cmd.PersistentFlags().StringVar(&opts.field, "field", local.Practice.Field, "field: swe, qf or ib (default: the user's field)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newRecommendCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfig reads the environment and fills the gaps from ~/.rehearse.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	local, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load local config: %w", err)
	}
	local.ApplyTo(cfg)
	return cfg, nil
}

// openApp wires the application the same way the daemon does.
func openApp(ctx context.Context, skipSeed bool) (*api.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return api.NewApp(ctx, api.AppConfig{Config: cfg, SkipSeed: skipSeed})
}

// user returns the --user flag, falling back to the configured demo user.
func (o *options) user(app *api.App) string {
	if o.userID != "" {
		return o.userID
	}
	return app.Config.DemoUserID
}

// fieldOrEmpty parses --field; empty means the user's own field.
func (o *options) fieldOrEmpty() (domain.Field, error) {
	if o.field == "" {
		return "", nil
	}
	return domain.ParseField(o.field)
}
