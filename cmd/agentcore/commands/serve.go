package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/llm"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/forgepilot/agentcore/internal/observer"
	"github.com/forgepilot/agentcore/internal/server"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agentcore HTTP/SSE server",
	Long: `Start a headless HTTP server exposing the agent engine: one session
per POST /session, Engine runs started via POST /session/{id}/start,
progress observed via GET /session/{id}/event (SSE), and suspended
review/debate decisions resolved via POST /session/{id}/decisions/*.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Default working directory for new sessions")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if globalModel != "" {
		cfg.Model = globalModel
	}

	ctx := context.Background()
	registry, err := llm.InitializeProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}
	client := llm.NewClient(registry, cfg.Model)

	srvCfg := server.DefaultConfig()
	srvCfg.Port = servePort
	srvCfg.Directory = workDir

	lintCmds := map[string]observer.CommandConfig{
		".go": {Name: "go", Args: []string{"vet", "./..."}},
	}

	srv := server.New(srvCfg, cfg, client, lintCmds, paths.CheckpointsPath())

	go func() {
		logging.Info().Int("port", servePort).Msg("agentcore server starting")
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
