package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/config"
	"cafeteria-storefront/internal/microservices/storefront"
)

func main() {
	mode := flag.String("mode", "storefront", "storefront | migrate")
	cfgPath := flag.String("config", "", "path to YAML config (defaults when empty)")
	envFile := flag.String("env-file", ".env", "dotenv file with secrets, skipped when missing")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env file %s: %v\n", *envFile, err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "storefront":
		err = storefront.Run(ctx, cfg)
	case "migrate":
		err = storefront.Migrate(ctx, cfg)
	default:
		fmt.Fprintln(os.Stderr, "--mode must be storefront or migrate")
		os.Exit(2)
	}
	if err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		os.Exit(1)
	}
}
