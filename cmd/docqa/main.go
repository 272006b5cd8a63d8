package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/kirillkom/docqa/internal/adapters/cli"
	"github.com/kirillkom/docqa/internal/bootstrap"
	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/observability/logging"
)

const serviceName = "docqa-cli"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(newEnv)
	if err := root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newEnv(ctx context.Context, configFile, logLevel string) (*cli.Env, func(), error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	// stdout carries answers and MCP frames, so diagnostics go to stderr.
	slog.SetDefault(logging.NewLogger(os.Stderr, "text", serviceName, logLevel))

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		return nil, nil, err
	}
	return &cli.Env{Session: app.Session, Library: app.Library, TopK: cfg.TopK}, app.Close, nil
}
