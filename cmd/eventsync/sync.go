package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync pass and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rt, st, err := buildRuntime(ctx, syncDryRun)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := rt.TriggerNow(ctx)
		if err != nil {
			return err
		}
		if !run.Acquired {
			fmt.Println("skipped: another process holds the sync lock")
			return nil
		}

		fmt.Printf("run %s finished in %s\n", run.RunID, run.FinishedAt.Sub(run.StartedAt).Round(0))
		fmt.Printf("  projects: pulled=%d pushed=%d created=%d conflicts=%d errors=%d\n",
			run.Projects.Pulled, run.Projects.Pushed, run.Projects.Created,
			run.Projects.Conflicts, run.Projects.Errors)
		fmt.Printf("  events:   created=%d skipped=%d errors=%d\n",
			run.Events.Created, run.Events.Skipped, run.Events.Errors)
		fmt.Printf("  lifecycle: completed=%d\n", run.Completed)
		if run.Error != "" {
			return fmt.Errorf("pass finished with errors: %s", run.Error)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "log intended writes without applying them")
	rootCmd.AddCommand(syncCmd)
}
