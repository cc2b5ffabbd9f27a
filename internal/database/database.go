package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/logger"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Options struct {
	Driver string
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	// QueryTimeout ограничивает каждую попытку, включая ожидание соединения из пула.
	QueryTimeout time.Duration

	ProbeAttempts int
	QueryAttempts int
	// RetryDelay: база линейной задержки, перед попыткой n ждём n*RetryDelay.
	RetryDelay time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func OptionsFromConfig(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) Options {
	return Options{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		QueryTimeout:    cfg.DB.QueryTimeout,
		ProbeAttempts:   cfg.DB.ProbeAttempts,
		QueryAttempts:   cfg.DB.QueryAttempts,
		RetryDelay:      cfg.DB.RetryDelay,
		Logger:          log,
		Metrics:         m,
	}
}

// Gateway владеет пулом соединений. Все запросы идут через Query или Tx,
// которые повторяют неудачные попытки с линейной задержкой.
type Gateway struct {
	db    *gorm.DB
	sqlDB *sql.DB
	opts  Options
	log   *slog.Logger
}

// Open создаёт пул без подключения, чтобы сервис стартовал и при
// недоступной базе. Связь проверяет Probe.
func Open(opts Options) (*Gateway, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ProbeAttempts < 1 {
		opts.ProbeAttempts = 1
	}
	if opts.QueryAttempts < 1 {
		opts.QueryAttempts = 1
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Gorm(opts.Logger, 200*time.Millisecond),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return &Gateway{
		db:    db,
		sqlDB: sqlDB,
		opts:  opts,
		log:   opts.Logger.With("component", "database"),
	}, nil
}

func (g *Gateway) Driver() string { return g.opts.Driver }

// DB возвращает gorm-хэндл без повторов.
func (g *Gateway) DB() *gorm.DB { return g.db }

func (g *Gateway) Close() error {
	return g.sqlDB.Close()
}

// Probe берёт соединение из пула, пингует и возвращает его. Делает до
// ProbeAttempts попыток, неудачу возвращает как false.
func (g *Gateway) Probe(ctx context.Context) bool {
	err := g.retry(ctx, "probe", g.opts.ProbeAttempts, func(ctx context.Context) error {
		conn, err := g.sqlDB.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.PingContext(ctx)
	})
	if err != nil {
		g.log.Warn("connectivity probe failed", "attempts", g.opts.ProbeAttempts, "error", err)
		return false
	}
	g.log.Info("connectivity probe succeeded")
	return true
}

// Query выполняет fn с повторами. fn должна быть безопасна для повторного запуска.
func (g *Gateway) Query(ctx context.Context, fn func(db *gorm.DB) error) error {
	return g.retry(ctx, "query", g.opts.QueryAttempts, func(ctx context.Context) error {
		return fn(g.db.WithContext(ctx))
	})
}

// Tx выполняет fn в транзакции. Неудачная попытка откатывается, и вся
// транзакция повторяется.
func (g *Gateway) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.retry(ctx, "tx", g.opts.QueryAttempts, func(ctx context.Context) error {
		return g.db.WithContext(ctx).Transaction(fn)
	})
}

func (g *Gateway) retry(ctx context.Context, op string, attempts int, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, linearBackoff(g.opts.RetryDelay, attempts), func(ctx context.Context) error {
		attempt++
		if attempt == 1 {
			g.log.Debug("database attempt", "op", op, "attempt", attempt)
		} else {
			g.log.Info("database attempt", "op", op, "attempt", attempt, "max_attempts", attempts)
		}

		actx, cancel := ctx, context.CancelFunc(func() {})
		if g.opts.QueryTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, g.opts.QueryTimeout)
		}
		err := fn(actx)
		cancel()
		if err == nil {
			return nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return err
		}
		g.log.Warn("database attempt failed", "op", op, "attempt", attempt, "max_attempts", attempts, "error", err)
		if attempt < attempts {
			g.opts.Metrics.IncDBRetry(op)
		}
		return retry.RetryableError(err)
	})
}

// linearBackoff ждёт base, 2*base, 3*base... не более attempts-1 повторов.
func linearBackoff(base time.Duration, attempts int) retry.Backoff {
	var n int64
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * base, false
	})
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), next)
}

// retryable сообщает, может ли err пройти при повторной попытке. Пустой
// результат поиска это ответ, а не сбой. Нарушения ограничений, ошибки данных
// и ошибки конвертации аргументов повторятся на каждой попытке.
func retryable(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, errs.ErrTicketNotFound),
		errors.Is(err, context.Canceled):
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// классы 22 (data exception) и 23 (integrity constraint violation)
		return !strings.HasPrefix(pgErr.Code, "22") && !strings.HasPrefix(pgErr.Code, "23")
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code != sqlite3.ErrConstraint && liteErr.Code != sqlite3.ErrMismatch && liteErr.Code != sqlite3.ErrRange
	}
	// database/sql не экспортирует ошибку конвертации аргументов
	return !strings.Contains(err.Error(), "sql: converting argument")
}
