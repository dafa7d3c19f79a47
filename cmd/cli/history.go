package main

import (
	"github.com/spf13/cobra"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/history"
)

var (
	historyPage int
	historyAll  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously processed uploads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := history.NewStore(api, logger)
		// a failed load still renders, labelled as unavailable
		_ = store.Load(cmd.Context())

		if historyAll {
			printer.HistoryAll(store)
			return nil
		}
		store.SetPage(historyPage - 1)
		printer.HistoryPage(store)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyPage, "page", "p", 1, "Page to show (1-based)")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Show every upload on one page")
}
