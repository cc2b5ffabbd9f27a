// Package health следит за доступностью базы и поддерживает
// это знание актуальным.
package health

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
)

// Gate: флаг доступности, который читает каждый закрытый запрос. Изначально закрыт.
type Gate struct {
	connected atomic.Bool
	metrics   *metrics.Metrics
}

func NewGate(m *metrics.Metrics) *Gate {
	g := &Gate{metrics: m}
	m.SetDatabaseConnected(false)
	return g
}

func (g *Gate) Set(ok bool) {
	g.connected.Store(ok)
	g.metrics.SetDatabaseConnected(ok)
}

func (g *Gate) Connected() bool {
	return g.connected.Load()
}

// Store: часть gateway базы, нужная Checker.
type Store interface {
	Probe(ctx context.Context) bool
	CreateSchema(ctx context.Context) error
	DescribeSchema(ctx context.Context) *database.SchemaStats
}

// Checker проверяет связь, создаёт схему и переключает gate.
type Checker struct {
	store Store
	gate  *Gate
	log   *slog.Logger
}

func NewChecker(store Store, gate *Gate, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{store: store, gate: gate, log: log.With("component", "health")}
}

// Check обновляет gate. Пока gate открыт, достаточно пинга; при переходе из
// закрытого состояния выполняются создание схемы и подсчёт строк.
func (c *Checker) Check(ctx context.Context) bool {
	was := c.gate.Connected()
	var ok bool
	if was {
		ok = c.store.Probe(ctx)
	} else {
		ok = c.bringUp(ctx)
	}
	c.gate.Set(ok)
	switch {
	case ok && !was:
		c.log.Info("database ready, API available")
	case !ok && was:
		c.log.Error("database lost, API requests will get 503")
	}
	return ok
}

func (c *Checker) bringUp(ctx context.Context) bool {
	if !c.store.Probe(ctx) {
		return false
	}
	if err := c.store.CreateSchema(ctx); err != nil {
		c.log.Error("schema creation failed", "error", err)
		return false
	}
	if st := c.store.DescribeSchema(ctx); st != nil {
		c.log.Info("schema ready", "tickets", st.Tickets, "logs", st.Logs)
	}
	return true
}

// Monitor повторяет Check каждые interval до отмены ctx. Неположительный
// interval отключает монитор.
func (c *Checker) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}
