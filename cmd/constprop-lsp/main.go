package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/internal/config"
	"github.com/mamaar/constprop/internal/logging"
	"github.com/mamaar/constprop/internal/lsp"
)

func main() {
	var (
		port    = pflag.IntP("port", "p", 0, "TCP port to listen on (0 for stdio)")
		debug   = pflag.Bool("debug", false, "Enable debug logging")
		logFile = pflag.String("logfile", "", "Log file path (default stderr)")
		noWatch = pflag.Bool("no-watch", false, "Do not watch the workspace for file changes")
		version = pflag.Bool("version", false, "Show version information")
	)
	pflag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", lsp.Name, lsp.Version)
		return
	}

	logCfg := config.Default().Log
	if *debug {
		logCfg.Level = "debug"
	}
	var (
		logger *zap.Logger
		err    error
	)
	if *logFile != "" {
		logCfg.File = *logFile
		logger, err = logging.New(logCfg, nil)
	} else {
		logger, err = logging.Stderr(logCfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := lsp.NewServer(lsp.Options{Watch: !*noWatch}, logger)
	if err := server.Start(ctx, *port); err != nil && ctx.Err() == nil {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}
