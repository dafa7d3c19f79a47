package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/client"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/config"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/server"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "bts-server",
	})

	flags := pflag.NewFlagSet("bts-server", pflag.ExitOnError)
	cfgFile := flags.StringP("config", "c", "", "Config file")
	flags.String("port", "", "Server port")
	flags.String("api", "", "Base URL of the extraction service")
	flags.String("log-level", "", "Log level")
	flags.Duration("timeout", 0, "Per-request timeout to the extraction service")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if lvl, err := cfg.Level(); err == nil {
		logger.SetLevel(lvl)
	}

	api, err := client.New(cfg.APIURL, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(logger))
	if err != nil {
		logger.Fatal("invalid api url", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(api, logger)
	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	logger.Info("starting server", "addr", addr, "api_url", cfg.APIURL)
	if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", "err", err)
	}
	logger.Info("server stopped")
}
