package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string

	LogLevel  string
	LogFormat string
	// LogOutput: stdout, stderr или путь к файлу (с ротацией).
	LogOutput string

	// WebDir: каталог статики фронтенда, GET / отдаёт WebDir/index.html.
	WebDir             string
	CORSAllowedOrigins []string

	KafkaBrokers     []string
	KafkaTopicTicket string

	DB DBConfig
}

type DBConfig struct {
	Driver string
	// URL, если задан, важнее отдельных полей postgres.
	URL        string
	Host       string
	Port       string
	User       string
	Password   string
	Database   string
	SSLMode    string
	SQLitePath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration

	ProbeAttempts   int
	QueryAttempts   int
	RetryDelay      time.Duration
	ReprobeInterval time.Duration
	// ExitOnFailure: завершать процесс, если база недоступна при старте,
	// вместо работы в деградированном режиме.
	ExitOnFailure bool
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:            getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:           firstEnv("APP_PORT", "HTTP_PORT", "PORT", "3000"),
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogOutput:          getEnv("LOG_OUTPUT", "stdout"),
		WebDir:             getEnv("WEB_DIR", "public"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket:   getEnv("KAFKA_TOPIC_TICKET", "helpdesk.tickets"),
	}
	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	cfg.DB.URL = getEnv("DATABASE_URL", "")
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "helpdesk")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", "helpdesk.db")

	var err error
	if cfg.DB.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.DB.MaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 2); err != nil {
		return nil, err
	}
	if cfg.DB.ProbeAttempts, err = getInt("DB_PROBE_ATTEMPTS", 2); err != nil {
		return nil, err
	}
	if cfg.DB.QueryAttempts, err = getInt("DB_QUERY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.DB.ConnMaxIdleTime, err = getDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DB.ConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DB.ConnectTimeout, err = getDuration("DB_CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DB.QueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DB.RetryDelay, err = getDuration("DB_RETRY_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.DB.ReprobeInterval, err = getDuration("DB_REPROBE_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DB.ExitOnFailure, err = getBool("DB_EXIT_ON_FAILURE", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.URL == "" && (c.DB.Host == "" || c.DB.Database == "") {
			return errors.New("config: DATABASE_URL or DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.URL == "" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			return errors.New("config: DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.MaxOpenConns < 1 {
		return errors.New("config: DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.DB.MaxIdleConns < 0 || c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		return errors.New("config: DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS")
	}
	if c.DB.ProbeAttempts < 1 || c.DB.QueryAttempts < 1 {
		return errors.New("config: DB_PROBE_ATTEMPTS and DB_QUERY_ATTEMPTS must be at least 1")
	}
	if c.DB.ReprobeInterval < 0 {
		return errors.New("config: DB_REPROBE_INTERVAL must not be negative")
	}
	return nil
}

// DSN: строка подключения для gorm в формате драйвера.
func (c *Config) DSN() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000"
	}
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d application_name=helpdesk-service",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode, int(c.DB.ConnectTimeout.Seconds()))
}

// DatabaseURL: URL postgres, нужен для создания базы.
func (c *Config) DatabaseURL() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

// getDuration принимает длительности Go ("10s") и целые числа как миллисекунды.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// splitList разбивает "a, b,c" на слайс, пропуская пустые элементы.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
