package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/client"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/config"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/render"
)

var (
	cfgFile string

	cfg     *config.Config
	logger  *log.Logger
	api     *client.Client
	printer *render.Printer
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:           "bts",
	Short:         "Browse bank statement uploads and export their transactions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "bts",
		})

		var opts []render.Option
		if noColor {
			opts = append(opts, render.NoColor())
		}
		printer = render.New(os.Stdout, opts...)

		// config init must work without a valid config
		if cmd.Annotations["skip-config"] == "true" {
			return nil
		}

		var err error
		cfg, err = config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		lvl, _ := cfg.Level()
		logger.SetLevel(lvl)

		api, err = client.New(cfg.APIURL, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Debug("configured", "api_url", cfg.APIURL, "sink", cfg.Sink, "timeout", cfg.RequestTimeout)
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./config.yaml or ~/.config/bts/config.yaml)")
	rootCmd.PersistentFlags().String("api", "", "Base URL of the extraction service")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout (0 waits indefinitely)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
