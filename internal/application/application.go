package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/health"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/router"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// API: HTTP-сервер вместе с gateway базы и фоновой
// перепроверкой связи.
type API struct {
	cfg      *config.Config
	log      *slog.Logger
	gateway  *database.Gateway
	checker  *health.Checker
	producer *kafka.Producer
	httpSrv  *http.Server
}

// NewAPI собирает приложение. База может быть недоступна: без
// DB_EXIT_ON_FAILURE сервис стартует в деградированном режиме, и запросы /api
// получают 503, пока монитор не увидит базу снова.
func NewAPI(ctx context.Context, cfg *config.Config, log *slog.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	m := metrics.New()
	gw, err := database.Open(database.OptionsFromConfig(cfg, log, m))
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	gate := health.NewGate(m)
	checker := health.NewChecker(gw, gate, log)
	if err := Bootstrap(ctx, checker, cfg.DB.ExitOnFailure, log); err != nil {
		_ = gw.Close()
		return nil, err
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, log)
	engine := router.New(router.Deps{
		Tickets:     handler.NewTicketHandler(service.NewTicketService(gw), producer, log),
		Health:      handler.NewHealthHandler(gate, gw),
		Gate:        gate,
		Metrics:     m,
		Logger:      log,
		CORSOrigins: cfg.CORSAllowedOrigins,
		WebDir:      cfg.WebDir,
	})

	return &API{
		cfg:      cfg,
		log:      log,
		gateway:  gw,
		checker:  checker,
		producer: producer,
		httpSrv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Bootstrap выполняет первую проверку связи. Ошибка возвращается только
// при exitOnFailure, иначе пишется в лог, а gate остаётся закрытым.
func Bootstrap(ctx context.Context, checker *health.Checker, exitOnFailure bool, log *slog.Logger) error {
	if checker.Check(ctx) {
		return nil
	}
	if exitOnFailure {
		return errors.New("database unavailable at startup")
	}
	log.Warn("starting in offline mode: database unavailable, /api requests will get 503 until it recovers")
	return nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливается.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("http server listening",
		"addr", a.httpSrv.Addr,
		"api", base+"/api/tickets",
		"health", base+"/api/health",
		"swagger", base+"/swagger",
		"metrics", base+"/metrics",
		"kafka", a.producer.Enabled(),
	)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.checker.Monitor(monitorCtx, a.cfg.DB.ReprobeInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("http: %w", err)
		}
	}

	stopMonitor()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.producer.Close(); err != nil {
		a.log.Warn("kafka producer close", "error", err)
	}
	if err := a.gateway.Close(); err != nil {
		a.log.Warn("database close", "error", err)
	}
	a.log.Info("http server stopped")
	return serveErr
}
