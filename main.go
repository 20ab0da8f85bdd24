package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"herald/service/config"
	"herald/service/server"
	"herald/service/util"

	"github.com/joho/godotenv"
)

var (
	version = "dev"
)

func init() {
	_ = godotenv.Load() //nolint:errcheck
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("Herald %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.VerboseLogging)
	logger.Info("Starting Herald", "version", version)

	if err := runServer(cfg); err != nil {
		logger.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func runServer(cfg *config.Config) error {
	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start blocks until the context is cancelled or the listener fails,
	// and drives the graceful shutdown itself.
	return srv.Start(ctx)
}
