package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gpudc/simulator/internal/api"
	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/evaluator"
	"github.com/gpudc/simulator/internal/leaderboard"
	"github.com/gpudc/simulator/internal/session"
	"github.com/gpudc/simulator/internal/simulator"
	"github.com/gpudc/simulator/internal/telemetry"
)

var (
	servePort          int
	serveHost          string
	serveAPIOnly       bool
	serveDashboardOnly bool
	serveConfigPath    string
	serveSinkPath      string
	serveLeaderboard   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the facility simulator and evaluation API",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host/interface to bind")
	serveCmd.Flags().BoolVar(&serveAPIOnly, "api-only", false, "Serve only the JSON/websocket API, no dashboard assets")
	serveCmd.Flags().BoolVar(&serveDashboardOnly, "dashboard-only", false, "No dashboard assets are bundled: logs a warning and serves the API")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a YAML config file (defaults to config.Default() if omitted)")
	serveCmd.Flags().StringVar(&serveSinkPath, "telemetry-sink", "", "Optional JSONL file to mirror every tick's facility state to")
	serveCmd.Flags().StringVar(&serveLeaderboard, "leaderboard", "leaderboard.csv", "Path to the leaderboard CSV file")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.Load(serveConfigPath)
		if err != nil {
			logrus.Fatalf("serve: %v", err)
		}
		cfg = loaded
	}

	sim, err := simulator.New(cfg, serveSinkPath)
	if err != nil {
		logrus.Fatalf("serve: failed to construct simulator: %v", err)
	}
	defer sim.Close()

	broadcaster := telemetry.NewBroadcaster()
	sim.Telemetry.AttachBroadcaster(broadcaster)

	eval := evaluator.New()
	sess := session.New(sim, eval)
	board := leaderboard.New(serveLeaderboard)

	server := api.NewServer(sim, sess, eval, board, broadcaster)

	var handler http.Handler = server.Engine()
	if serveDashboardOnly {
		logrus.Warn("serve: --dashboard-only requested but no bundled dashboard assets ship with this binary; serving API only")
	}
	if serveAPIOnly && serveDashboardOnly {
		logrus.Fatal("serve: --api-only and --dashboard-only are mutually exclusive")
	}

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logrus.Errorf("serve: failed to bind %s: %v", addr, err)
		os.Exit(1)
	}

	httpServer := &http.Server{Handler: handler}
	logrus.Infof("serve: listening on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logrus.Info("serve: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("serve: graceful shutdown failed: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("serve: server error: %v", err)
			os.Exit(1)
		}
	}
	logrus.Info("serve: stopped cleanly")
}
