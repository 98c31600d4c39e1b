package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat/internal/app"
	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/log"
)

var rootCmd = &cobra.Command{
	Use:          "roomchat-server",
	Short:        "Room chat server with encrypted message history",
	SilenceUsage: true,
	RunE:         runServer,
}

var (
	flagConfig   string
	flagAddr     string
	flagDB       string
	flagLogLevel string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "path to config.yaml (created with defaults when missing)")
	flags.StringVar(&flagAddr, "addr", "", "HTTP listen address")
	flags.StringVar(&flagDB, "db", "", "SQLite database path")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "roomchat-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	bootLogger := log.New("info")
	if err := godotenv.Load(); err != nil {
		bootLogger.Debug().Msg("no .env file found, using environment variables")
	}

	cfg, configPath, err := config.Load(bootLogger, flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(config.Config{Addr: flagAddr, DatabasePath: flagDB, LogLevel: flagLogLevel})

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", configPath).Str("addr", cfg.Addr).Msg("starting roomchat server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
