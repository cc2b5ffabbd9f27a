package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "helpdesk-service",
	Short:         "Helpdesk API: support tickets with an activity log",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(republishCmd)
}

// setup загружает и проверяет конфигурацию, устанавливает логгер по умолчанию.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, log, nil
}
