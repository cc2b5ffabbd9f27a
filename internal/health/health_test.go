package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/database/dbtest"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	up        bool
	schemaErr error
	probes    int
	schemas   int
}

func (f *fakeStore) Probe(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.up
}

func (f *fakeStore) CreateSchema(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas++
	return f.schemaErr
}

func (f *fakeStore) DescribeSchema(context.Context) *database.SchemaStats {
	return &database.SchemaStats{}
}

func (f *fakeStore) setUp(up bool) {
	f.mu.Lock()
	f.up = up
	f.mu.Unlock()
}

func (f *fakeStore) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGate_StartsClosed(t *testing.T) {
	m := metrics.New()
	g := NewGate(m)

	assert.False(t, g.Connected())
	assert.Equal(t, 0.0, gauge(t, m))
}

func TestGate_SetUpdatesGauge(t *testing.T) {
	m := metrics.New()
	g := NewGate(m)

	g.Set(true)
	assert.True(t, g.Connected())
	assert.Equal(t, 1.0, gauge(t, m))

	g.Set(false)
	assert.False(t, g.Connected())
	assert.Equal(t, 0.0, gauge(t, m))
}

func TestGate_NilMetrics(t *testing.T) {
	g := NewGate(nil)
	g.Set(true)
	assert.True(t, g.Connected())
}

func TestChecker_DatabaseUp(t *testing.T) {
	store := &fakeStore{up: true}
	gate := NewGate(nil)

	ok := NewChecker(store, gate, quietLogger()).Check(context.Background())

	assert.True(t, ok)
	assert.True(t, gate.Connected())
	assert.Equal(t, 1, store.schemas)
}

func TestChecker_DatabaseDownSkipsSchema(t *testing.T) {
	store := &fakeStore{up: false}
	gate := NewGate(nil)
	gate.Set(true)

	ok := NewChecker(store, gate, quietLogger()).Check(context.Background())

	assert.False(t, ok)
	assert.False(t, gate.Connected())
	assert.Zero(t, store.schemas)
}

func TestChecker_OpenGateOnlyPings(t *testing.T) {
	store := &fakeStore{up: true}
	gate := NewGate(nil)
	c := NewChecker(store, gate, quietLogger())

	for i := 0; i < 5; i++ {
		require.True(t, c.Check(context.Background()))
	}
	assert.Equal(t, 5, store.probeCount())
	assert.Equal(t, 1, store.schemas)

	store.setUp(false)
	assert.False(t, c.Check(context.Background()))
	store.setUp(true)
	assert.True(t, c.Check(context.Background()))
	assert.Equal(t, 2, store.schemas, "schema is re-created after recovery")
}

func TestChecker_SchemaFailureKeepsGateClosed(t *testing.T) {
	store := &fakeStore{up: true, schemaErr: errors.New("permission denied")}
	gate := NewGate(nil)

	assert.False(t, NewChecker(store, gate, quietLogger()).Check(context.Background()))
	assert.False(t, gate.Connected())
}

func TestChecker_AgainstSQLite(t *testing.T) {
	gate := NewGate(nil)

	ok := NewChecker(dbtest.New(t), gate, quietLogger()).Check(context.Background())

	assert.True(t, ok)
	assert.True(t, gate.Connected())
}

func TestChecker_MonitorRecovers(t *testing.T) {
	store := &fakeStore{up: false}
	gate := NewGate(nil)
	c := NewChecker(store, gate, quietLogger())
	require.False(t, c.Check(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Monitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	store.setUp(true)
	assert.Eventually(t, gate.Connected, time.Second, 5*time.Millisecond)

	store.setUp(false)
	assert.Eventually(t, func() bool { return !gate.Connected() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}

func TestChecker_MonitorDisabled(t *testing.T) {
	store := &fakeStore{}
	c := NewChecker(store, NewGate(nil), quietLogger())

	c.Monitor(context.Background(), 0)

	assert.Zero(t, store.probeCount())
}

func gauge(t *testing.T, m *metrics.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "helpdesk_database_connected" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("helpdesk_database_connected not registered")
	return 0
}
