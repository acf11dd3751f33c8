package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rehearse/internal/mcp"
	"github.com/felixgeelhaar/rehearse/internal/queue"
)

func newWorkerCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Record rating events from RabbitMQ",
		Long: `Consume rating events published by the daemon and record them in the
rating event log. Requires RABBITMQ_URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Config.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL is not set")
			}
			conn, err := queue.NewConnection(app.Config.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("connect rabbitmq: %w", err)
			}
			defer conn.Close()

			cfg := queue.DefaultConsumerConfig()
			if workers > 0 {
				cfg.Workers = workers
			}
			consumer := queue.NewConsumer(conn, queue.RecordTo(app.Events), cfg)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			slog.Info("rating event worker running", "workers", cfg.Workers)
			fmt.Fprintln(cmd.ErrOrStderr(), "worker running, press Ctrl+C to stop")

			<-ctx.Done()
			consumer.Stop()
			slog.Info("rating event worker stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent handlers")
	return cmd
}

func newMCPCmd(opts *options) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the practice tools over MCP",
		Long: `Serve the practice and interview tools to an MCP client.

Stdio is used unless --http is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			srv := mcp.NewServer(mcp.Config{
				Practice:      app.Practice,
				Interviews:    app.Interviews,
				DefaultUserID: opts.user(app),
				Version:       version,
			})
			if httpAddr != "" {
				slog.Info("serving MCP over HTTP", "addr", httpAddr)
				return srv.ServeHTTP(ctx, httpAddr)
			}
			return srv.ServeStdio(ctx)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP on this address instead of stdio")
	return cmd
}
