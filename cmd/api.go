package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/psds-microservice/helpdesk-service/internal/application"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API (default command)",
	RunE:  runAPI,
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := application.NewAPI(ctx, cfg, log)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
