package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon",
	Long: `Run the scheduler loop: one sync pass immediately, then one every
configured interval until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rt, st, err := buildRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := rt.Start(ctx); err != nil {
			return err
		}
		logger.Info("eventsync running", "interval", cfg.Interval, "version", Version)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
		case <-ctx.Done():
		}

		rt.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
