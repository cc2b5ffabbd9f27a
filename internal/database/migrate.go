package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lib/pq"
)

// EnsureDatabase создаёт базу из databaseURL, если её ещё нет. Подключается к
// служебной базе "postgres" на том же сервере.
func EnsureDatabase(ctx context.Context, databaseURL string, log *slog.Logger) error {
	adminURL, dbName, err := maintenanceURL(databaseURL)
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", adminURL)
	if err != nil {
		return fmt.Errorf("ensure database: open admin connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ensure database: ping admin connection: %w", err)
	}
	var exists bool
	err = db.QueryRowContext(ctx, "SELECT true FROM pg_database WHERE datname = $1", dbName).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("ensure database: check %q: %w", dbName, err)
	}
	if exists {
		log.Debug("database exists", "name", dbName)
		return nil
	}
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("ensure database: create %q: %w", dbName, err)
	}
	log.Info("database created", "name", dbName)
	return nil
}

// maintenanceURL возвращает URL служебной базы "postgres" и имя целевой базы.
func maintenanceURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("ensure database: parse url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", fmt.Errorf("ensure database: expected a postgres:// url, got scheme %q", u.Scheme)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" || strings.Contains(dbName, "/") {
		return "", "", fmt.Errorf("ensure database: bad database name %q in url", dbName)
	}
	u.Path = "/postgres"
	u.RawPath = ""
	return u.String(), dbName, nil
}
