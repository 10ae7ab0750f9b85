package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldday/eventsync/internal/store"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.DSN == "" {
			return fmt.Errorf("db.dsn is required (EVENTSYNC_DB_DSN)")
		}
		st, err := store.Open(ctx, cfg.DSN, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.LatestSyncRuns(ctx, statusLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no sync runs recorded")
			return nil
		}

		for _, run := range runs {
			outcome := "ok"
			switch {
			case !run.Acquired:
				outcome = "skipped (lock held)"
			case run.Error != "":
				outcome = "error"
			}
			fmt.Printf("%s  %s  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.RunID, outcome)
			if run.Acquired {
				fmt.Printf("    projects: pulled=%d pushed=%d created=%d conflicts=%d errors=%d\n",
					run.Projects.Pulled, run.Projects.Pushed, run.Projects.Created,
					run.Projects.Conflicts, run.Projects.Errors)
				fmt.Printf("    events:   created=%d skipped=%d errors=%d  lifecycle: completed=%d\n",
					run.Events.Created, run.Events.Skipped, run.Events.Errors, run.Completed)
			}
			if run.Error != "" {
				fmt.Printf("    error: %s\n", run.Error)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statusCmd)
}
