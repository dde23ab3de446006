package runtime_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *runtime.Engine
	store  *memory.Store
	clock  *fakeClock
}

func newFixture(t *testing.T, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()

	var seq int
	var mu sync.Mutex
	base := []runtime.EngineOption{
		runtime.WithClock(clock.Now),
		runtime.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("session-%d", seq)
		}),
	}
	engine := runtime.NewEngine(session.NewManager(store), append(base, opts...)...)
	return &fixture{engine: engine, store: store, clock: clock}
}

func (f *fixture) turn(t *testing.T, id, input string) *domain.Result {
	t.Helper()
	res, err := f.engine.ProcessTurn(context.Background(), id, input)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (f *fixture) load(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := f.store.Load(context.Background(), id)
	require.NoError(t, err)
	return s
}

// advanceTo drives a fresh session until it waits at step.
func (f *fixture) advanceTo(t *testing.T, id string, step domain.Step) {
	t.Helper()
	answers := []string{"John", "john@example.com", "9876543210", "support"}
	f.turn(t, id, "")
	for i, s := range []domain.Step{domain.StepName, domain.StepEmail, domain.StepPhone, domain.StepService} {
		if s == step {
			return
		}
		f.turn(t, id, answers[i])
	}
}
