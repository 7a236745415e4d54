package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"anpr-api/internal/app"
	"anpr-api/internal/config"
	"anpr-api/internal/logger"
	"anpr-api/internal/service"
)

var configFile string

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "anpr-api: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "anpr-api",
		Short:        "Read API and spreadsheet export for detected plates",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./config.*)")
	cmd.AddCommand(newServeCmd(), newExportCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.Error().Err(err).Msg("failed to close store")
				}
			}()

			return a.Serve(ctx)
		},
	}
}

func newExportCmd() *cobra.Command {
	var from, to, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write detections in a date range to an .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			export, err := a.Service.ExportExcel(ctx, service.ExportQuery{From: from, To: to})
			if err != nil {
				return err
			}
			defer export.Close()

			if out == "" {
				out = export.Filename
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Write(f); err != nil {
				_ = f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", export.Rows, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Lower bound, ISO-8601 (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Upper bound, ISO-8601 (inclusive)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default derived from the range)")
	return cmd
}
