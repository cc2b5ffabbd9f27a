package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

//go:embed migrations
var migrationsFS embed.FS

// SchemaStats: справочное число строк, выводится при старте и в /api/health.
type SchemaStats struct {
	Tickets int64 `json:"tickets"`
	Logs    int64 `json:"logs"`
}

// CreateSchema применяет встроенные миграции для текущего драйвера.
// Миграции используют CREATE ... IF NOT EXISTS, запуск на каждом старте безопасен.
func (g *Gateway) CreateSchema(ctx context.Context) error {
	dialect, dir := goose.DialectPostgres, "migrations/postgres"
	if g.opts.Driver == config.DriverSQLite {
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("schema: migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, g.sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("schema: goose provider: %w", err)
	}

	var results []*goose.MigrationResult
	err = g.retry(ctx, "schema", g.opts.QueryAttempts, func(ctx context.Context) error {
		var err error
		results, err = provider.Up(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("schema: up: %w", err)
	}
	if len(results) == 0 {
		g.log.Info("schema: up to date")
	}
	for _, r := range results {
		g.log.Info("schema: migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// DescribeSchema считает тикеты и логи. Только для информации: при ошибке
// пишет в лог и возвращает nil.
func (g *Gateway) DescribeSchema(ctx context.Context) *SchemaStats {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var st SchemaStats
	db := g.db.WithContext(ctx)
	if err := db.Model(&model.Ticket{}).Count(&st.Tickets).Error; err != nil {
		g.log.Warn("schema: count tickets", "error", err)
		return nil
	}
	if err := db.Model(&model.Log{}).Count(&st.Logs).Error; err != nil {
		g.log.Warn("schema: count logs", "error", err)
		return nil
	}
	return &st
}
