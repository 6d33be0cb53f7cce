package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/internal/config"
	"github.com/mamaar/constprop/internal/logging"
	"github.com/mamaar/constprop/internal/mcp"
)

func main() {
	var (
		workspaceFlag = pflag.StringP("workspace", "w", "", "Workspace loaded at startup (empty to wait for load_workspace)")
		portFlag      = pflag.IntP("port", "p", 0, "HTTP port to listen on (0 for stdio)")
		debugFlag     = pflag.Bool("debug", false, "Enable debug logging")
		logFile       = pflag.String("logfile", "", "Also write JSON logs to this file")
		noWatch       = pflag.Bool("no-watch", false, "Do not watch the workspace for file changes")
		versionFlag   = pflag.Bool("version", false, "Show version information")
	)
	pflag.Parse()

	if *versionFlag {
		fmt.Printf("%s v%s\n", mcp.Name, mcp.Version)
		fmt.Println("Model Context Protocol server for Java constant propagation")
		return
	}

	logCfg := config.Default().Log
	logCfg.File = *logFile
	if *debugFlag {
		logCfg.Level = "debug"
	}
	// stdout carries the protocol
	logger, err := logging.Stderr(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	state := mcp.NewState(!*noWatch, logger)
	defer state.Close()

	if *workspaceFlag != "" {
		root, err := filepath.Abs(*workspaceFlag)
		if err != nil {
			logger.Fatal("failed to resolve workspace path", zap.Error(err))
		}
		if err := state.LoadWorkspace(root); err != nil {
			logger.Fatal("failed to load workspace", zap.String("root", root), zap.Error(err))
		}
	}

	s := mcp.NewServer(state)
	if *portFlag == 0 {
		logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(s)
	logger.Info("starting MCP HTTP server", zap.Int("port", *portFlag))
	if err := httpServer.Start(fmt.Sprintf(":%d", *portFlag)); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}
