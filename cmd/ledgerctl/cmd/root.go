// Package cmd holds the ledgerctl commands.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultFile = "./fintrack.json"

// app is the state shared by every command of one invocation.
type app struct {
	file string
	now  func() time.Time
}

// NewRootCmd builds the command tree. now is the clock used for "today".
func NewRootCmd(now func() time.Time) *cobra.Command {
	if now == nil {
		now = time.Now
	}
	a := &app{now: now}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Pay-period ledger CLI",
		Long:          "Inspect and edit a local fintrack snapshot: periods, summaries, debts and recurring entries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.file, "file", "f", defaultFile, "Snapshot file")

	root.AddCommand(
		a.periodCmd(),
		a.summaryCmd(),
		a.upcomingCmd(),
		a.debtsCmd(),
		a.addTxCmd(),
		a.postRecurringCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.resetCmd(),
	)
	return root
}

// Execute is the main entry point called from main.go.
func Execute() {
	root := NewRootCmd(time.Now)
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
