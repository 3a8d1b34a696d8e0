// Command agentcore-server is a plain-flag standalone entry point for
// the Engine's HTTP/SSE server, mirroring the teacher's
// cmd/opencode-server (flag, not cobra) for deployments that just want a
// single binary + flags rather than the full agentcore CLI's subcommand
// tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/llm"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/forgepilot/agentcore/internal/observer"
	"github.com/forgepilot/agentcore/internal/server"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

func main() {
	var (
		port      = flag.Int("port", 8080, "Port to listen on")
		directory = flag.String("directory", "", "Default working directory for new sessions")
		showVer   = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("agentcore-server %s (%s)\n", version, buildTime)
		return
	}

	if err := run(*port, *directory); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(port int, directory string) error {
	workDir := directory
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		workDir = wd
	}

	logging.Init(logging.DefaultConfig())

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	registry, err := llm.InitializeProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}
	client := llm.NewClient(registry, cfg.Model)

	srvCfg := server.DefaultConfig()
	srvCfg.Port = port
	srvCfg.Directory = workDir

	lintCmds := map[string]observer.CommandConfig{
		".go": {Name: "go", Args: []string{"vet", "./..."}},
	}

	srv := server.New(srvCfg, cfg, client, lintCmds, paths.CheckpointsPath())

	go func() {
		logging.Info().Int("port", port).Msg("agentcore-server starting")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Error().Err(err).Msg("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
