package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rehearse/internal/catalog"
	"github.com/felixgeelhaar/rehearse/internal/domain"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the app migrates the configured store.
			app, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", app.Config.StorageDriver)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var dir, file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the problem bank into storage",
		Long: `Load the problem bank into storage.

--file seeds one bank file and --dir every bank under a directory. With
neither, PROBLEMS_PATH or the built-in bank is used. Problems already
stored under the same ID are replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()

			var problems []*domain.Problem
			switch {
			case file != "":
				problems, err = catalog.NewDirLoader(filepath.Dir(file)).LoadFile(filepath.Base(file))
			case dir != "":
				problems, err = catalog.Source(dir)
			default:
				problems, err = catalog.Source(app.Config.ProblemsPath)
			}
			if err != nil {
				return fmt.Errorf("load problems: %w", err)
			}
			res, err := catalog.Seed(ctx, app.UoW.Problems(), problems)
			if err != nil {
				return err
			}

			if app.Cache != nil {
				if _, err := app.Cache.Invalidate(ctx); err != nil {
					slog.Warn("catalog cache invalidation failed", "error", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d problems\n", res.Total)
			for _, f := range domain.Fields() {
				fmt.Fprintf(out, "  %-4s %d\n", f, res.ByField[f])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML problem bank file")
	cmd.Flags().StringVar(&dir, "dir", "", "directory of YAML problem banks")
	cmd.MarkFlagsMutuallyExclusive("file", "dir")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rehearse %s\n", version)
		},
	}
}
