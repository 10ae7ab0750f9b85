package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldday/eventsync/internal/config"
	"github.com/fieldday/eventsync/internal/telemetry"
)

// Version is stamped by the release build via -ldflags.
var Version = "dev"

var (
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "eventsync",
	Short: "Sync event requests and projects between the intake spreadsheet and the app database",
	Long: `eventsync keeps the shared intake spreadsheet and the application
database in agreement.

Event requests flow one way: new spreadsheet rows are imported once and
never modified afterward, so corrections made in the app stick. Projects
flow both ways, with the newer edit winning on conflict. A database
advisory lock keeps multiple instances from syncing at the same time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		logger = newLogger(cfg.LogLevel)
		slog.SetDefault(logger)
		return telemetry.Init(cmd.Context(), "eventsync", Version)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (YAML)")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
