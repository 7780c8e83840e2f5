package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-sync15/internal/config"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/spf13/cobra"
)

const logRole = "sync15-client"

// NewRootCommand creates the sync15 command tree. Configuration flags are
// shared by every subcommand and merged with the environment and the
// optional config file.
func NewRootCommand(info models.AppBuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sync15",
		Short:         "Sync 1.5 client",
		Long:          "Synchronizes local browser history with a Sync 1.5 storage server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newSyncCommand(flags))
	cmd.AddCommand(newRunCommand(flags))
	cmd.AddCommand(newEngineCommand(flags, "wipe", "Delete all local data of an engine",
		func(ctx context.Context, a *App, engine string) error { return a.WipeEngine(ctx, engine) }))
	cmd.AddCommand(newEngineCommand(flags, "reset", "Forget the sync metadata of an engine",
		func(ctx context.Context, a *App, engine string) error { return a.ResetEngine(ctx, engine) }))
	cmd.AddCommand(newVersionCommand(info))

	return cmd
}

// withApp loads the configuration, builds an [App] and closes it after fn.
func withApp(ctx context.Context, flags *config.StructuredConfig, fn func(context.Context, *App) error) error {
	cfg, err := config.GetClientConfig(flags)
	if err != nil {
		return fmt.Errorf("error getting configs: %w", err)
	}

	log := logger.NewClientLogger(logRole, cfg.LogFile)
	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Err(closeErr).Str("func", "withApp").Msg("error closing app")
		}
	}()

	return fn(ctx, app)
}

func newSyncCommand(flags *config.StructuredConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *App) error {
				report, err := a.Sync(ctx)
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err = enc.Encode(report); err != nil {
					return fmt.Errorf("print sync result: %w", err)
				}
				if report.Status != models.StatusOk {
					return fmt.Errorf("sync finished with status %s", report.Status)
				}
				return nil
			})
		},
	}
}

func newRunCommand(flags *config.StructuredConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, flags, func(ctx context.Context, a *App) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Scheduled sync started. Press Ctrl-C to stop.")
				return a.Run(ctx)
			})
		},
	}
}

func newEngineCommand(flags *config.StructuredConfig, use, short string,
	fn func(context.Context, *App, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <engine>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *App) error {
				if err := fn(ctx, a, args[0]); err != nil {
					return fmt.Errorf("%s %s: %w", use, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s done\n", args[0], use)
				return nil
			})
		},
	}
}

func newVersionCommand(info models.AppBuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Build version: %s\n", info.BuildVersion())
			fmt.Fprintf(out, "Build date: %s\n", info.BuildDate())
			fmt.Fprintf(out, "Build commit: %s\n", info.BuildCommit())
		},
	}
}
