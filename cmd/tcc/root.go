package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/config"
)

var (
	listenAddr string
	contentDir string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "tcc",
	Short:         "TCC website and content admin server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&contentDir, "content-dir", "", "markdown content root (overrides TCC_CONTENT_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides TCC_LOG_LEVEL)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides TCC_LISTEN_ADDR)")

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

// loadConfig reads the environment, applies flag overrides and sets up
// the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if contentDir != "" {
		cfg.ContentDir = contentDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", "tcc-site").
		Str("version", version).
		Logger()
}
