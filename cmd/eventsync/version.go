package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the eventsync version",
	Run: func(*cobra.Command, []string) {
		fmt.Println("eventsync", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
