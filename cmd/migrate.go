package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create the database if needed and apply the schema",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check connectivity and print row counts",
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if cfg.DB.Driver == config.DriverPostgres {
		if err := database.EnsureDatabase(cmd.Context(), cfg.DatabaseURL(), log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	gw, err := database.Open(database.OptionsFromConfig(cfg, log, nil))
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	if err := gw.CreateSchema(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrate up: ok")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	gw, err := database.Open(database.OptionsFromConfig(cfg, log, nil))
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	if !gw.Probe(ctx) {
		return errors.New("migrate status: database unreachable")
	}
	st := gw.DescribeSchema(ctx)
	if st == nil {
		return errors.New("migrate status: schema missing, run migrate up")
	}
	cmd.Printf("driver=%s tickets=%d logs=%d\n", gw.Driver(), st.Tickets, st.Logs)
	return nil
}
