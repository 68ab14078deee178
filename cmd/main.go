package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"seattle-events/internal/app"
	"seattle-events/internal/commands"
	"seattle-events/internal/config"
	"seattle-events/internal/logging"
)

const appName = "seattle-events"

// Set with -ldflags "-X main.version=...".
var version = "dev"

const usage = `Usage: seattle-events [command] [options]

Commands:
  serve          run the dashboard (default)
  migrate        apply or inspect schema migrations
  hash-password  write the Basic Auth file
  publish        publish event records to MQTT
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	command, args := "serve", os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = serve(ctx, cfg)
	case "migrate":
		err = commands.Migrate(args, cfg, os.Stdout)
	case "hash-password":
		err = commands.HashPassword(args, cfg, os.Stdin, os.Stdout)
	case "publish":
		err = commands.Publish(ctx, args, cfg, os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		err = fmt.Errorf("unknown command %q", command)
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		slog.Error(command+" failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	err := app.Run(ctx, cfg)
	slog.Info("shutting down")
	return err
}
