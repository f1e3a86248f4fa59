package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ethica-Project/EthicaDL/internal/compress"
	"github.com/Ethica-Project/EthicaDL/internal/config"
	"github.com/Ethica-Project/EthicaDL/internal/download"
	"github.com/Ethica-Project/EthicaDL/internal/janitor"
	"github.com/Ethica-Project/EthicaDL/internal/logging"
	"github.com/Ethica-Project/EthicaDL/internal/platform"
	"github.com/Ethica-Project/EthicaDL/internal/server"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const AppName = "EthicaDL"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	logger.Info(ctx, "starting", "app", AppName, "version", version, "addr", cfg.ListenAddr)

	if err := platform.CreateDirectoryIfNotExists(cfg.DownloadDir); err != nil {
		return fmt.Errorf("ensure download dir: %w", err)
	}

	// Initialize services
	compressSvc := compress.NewService(cfg.FFmpegPath, logger)
	downloadSvc := download.NewService(download.Options{
		DownloadDir:       cfg.DownloadDir,
		MaxParallel:       cfg.MaxParallel,
		InactivityTimeout: cfg.InactivityTimeout,
		FFmpegPath:        cfg.FFmpegPath,
	}, compressSvc, logger)

	sweeper := janitor.New(cfg.DownloadDir, cfg.RetentionWindow, cfg.CleanupInterval, downloadSvc, logger)
	go sweeper.Run(ctx)

	srv := server.New(cfg, downloadSvc, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info(ctx, "shutdown complete")
	return nil
}
