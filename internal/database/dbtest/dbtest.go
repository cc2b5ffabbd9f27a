// Package dbtest открывает одноразовые gateway на SQLite для тестов.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/stretchr/testify/require"
)

// Options возвращает настройки gateway для нового файла SQLite в t.TempDir().
func Options(t testing.TB) database.Options {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helpdesk.db")
	return database.Options{
		Driver:          config.DriverSQLite,
		DSN:             path + "?_foreign_keys=on&_busy_timeout=5000",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		QueryTimeout:    5 * time.Second,
		ProbeAttempts:   2,
		QueryAttempts:   2,
		RetryDelay:      time.Millisecond,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// New открывает gateway с уже созданной схемой.
func New(t testing.TB) *database.Gateway {
	t.Helper()
	gw, err := database.Open(Options(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	require.NoError(t, gw.CreateSchema(context.Background()))
	return gw
}
