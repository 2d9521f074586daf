// Command labbook-export writes every asset and booking to an .xlsx file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"labbook/internal/config"
	"labbook/internal/report"
	"labbook/internal/repository"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $LABBOOK_CONFIG_PATH)")
	out := flag.String("out", "", "output file (defaults to labbook_<timestamp>.xlsx)")
	flag.Parse()

	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := run(*configPath, *out, &logger); err != nil {
		logger.Fatal().Err(err).Msg("export failed")
	}
}

func run(configPath, out string, logger *zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	if out == "" {
		out = fmt.Sprintf("labbook_%s.xlsx", time.Now().Format("20060102_150405"))
	}

	if err := report.ExportToFile(ctx, stores, out); err != nil {
		return err
	}

	logger.Info().Str("file", out).Msg("export written")
	return nil
}
