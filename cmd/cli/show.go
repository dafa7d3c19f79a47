package main

import (
	"fmt"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
)

var (
	showFilters filters
	showDump    bool
)

var showCmd = &cobra.Command{
	Use:   "show <upload_id>",
	Short: "Show the transactions extracted for one upload",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		for _, d := range []string{showFilters.startDate, showFilters.endDate} {
			if d == "" {
				continue
			}
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", d)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer := detail.NewViewer(detail.NewFetcher(api, logger))

		d, err := viewer.Show(cmd.Context(), args[0])
		if err != nil {
			printer.Error(err)
			return err
		}

		if showDump {
			pp.Println(d.Records)
			return nil
		}

		if !d.Empty() {
			total := len(d.Records)
			d.Records = showFilters.apply(d.Records)
			if len(d.Records) != total {
				logger.Info("filtered transactions", "shown", len(d.Records), "total", total)
			}
		}
		printer.Details(d)
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	showCmd.Flags().StringVar(&showFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	showCmd.Flags().Float64Var(&showFilters.minAmount, "min", 0, "Minimum amount")
	showCmd.Flags().Float64Var(&showFilters.maxAmount, "max", 0, "Maximum amount")
	showCmd.Flags().StringVar(&showFilters.search, "search", "", "Filter by description or id (case insensitive)")
	showCmd.Flags().BoolVar(&showDump, "dump", false, "Pretty-print the decoded records")
}
