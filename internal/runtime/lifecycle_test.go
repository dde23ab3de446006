package runtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_IdleExpiry(t *testing.T) {
	f := newFixture(t)
	id := "idle"
	f.advanceTo(t, id, domain.StepPhone)

	// Exactly at the timeout the session is still alive.
	f.clock.Advance(runtime.DefaultIdleTimeout)
	res := f.turn(t, id, "")
	assert.Equal(t, domain.StepPhone, res.CurrentStep)

	f.clock.Advance(runtime.DefaultIdleTimeout + time.Second)
	res = f.turn(t, id, "9876543210")
	assert.Equal(t, "Session expired. Let's restart. What's your name?", res.Message)
	assert.Equal(t, domain.StepName, res.CurrentStep)
	assert.Equal(t, true, res.Metadata[domain.KeySessionRestarted])

	s := f.load(t, id)
	assert.Equal(t, domain.StatusActive, s.Status)
	assert.Equal(t, domain.Fields{}, s.Fields)
	assert.Equal(t, f.clock.Now(), s.LastActivityAt)

	res = f.turn(t, id, "Jane")
	assert.Equal(t, "Nice to meet you, Jane!\nWhat's your email address?", res.Message)
}

func TestEngine_CompletedSessionExpires(t *testing.T) {
	f := newFixture(t)
	id := "old"
	f.advanceTo(t, id, domain.StepService)
	f.turn(t, id, "support")
	require.Contains(t, f.load(t, id).Metadata, domain.KeyFinalSummary)

	f.clock.Advance(time.Hour)
	res := f.turn(t, id, "")
	assert.Equal(t, domain.StepName, res.CurrentStep)
	assert.Equal(t, true, res.Metadata[domain.KeySessionRestarted])

	s := f.load(t, id)
	assert.Equal(t, domain.StatusActive, s.Status)
	assert.NotContains(t, s.Metadata, domain.KeyFinalSummary)
}

func TestEngine_ExpiryDisabled(t *testing.T) {
	f := newFixture(t, runtime.WithIdleTimeout(0))
	id := "forever"
	f.advanceTo(t, id, domain.StepEmail)

	f.clock.Advance(48 * time.Hour)
	res := f.turn(t, id, "")
	assert.Equal(t, domain.StepEmail, res.CurrentStep)
	assert.Zero(t, f.engine.IdleTimeout())
}

// hookRecorder captures every lifecycle callback in order.
type hookRecorder struct {
	mu       sync.Mutex
	calls    []domain.EventType
	outcomes []string
	resets   []domain.ResetReason
	failures []*domain.ValidationEvent
}

func (r *hookRecorder) add(typ domain.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, typ)
}

func (r *hookRecorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionCreated: func(ctx context.Context, e *domain.SessionEvent) { r.add(e.Type) },
		OnStepAdvanced:   func(ctx context.Context, e *domain.StepEvent) { r.add(e.Type) },
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			r.add(e.Type)
			r.mu.Lock()
			r.failures = append(r.failures, e)
			r.mu.Unlock()
		},
		OnSessionReset: func(ctx context.Context, e *domain.ResetEvent) {
			r.add(e.Type)
			r.mu.Lock()
			r.resets = append(r.resets, e.Reason)
			r.mu.Unlock()
		},
		OnSessionCompleted: func(ctx context.Context, e *domain.SessionEvent) { r.add(e.Type) },
		OnTurnProcessed: func(ctx context.Context, e *domain.TurnEvent) {
			r.add(e.Type)
			r.mu.Lock()
			r.outcomes = append(r.outcomes, e.Outcome)
			r.mu.Unlock()
		},
	}
}

func TestEngine_LifecycleHooks(t *testing.T) {
	rec := &hookRecorder{}
	f := newFixture(t, runtime.WithLifecycleHooks(rec.hooks()))
	ctx := context.Background()

	id, _, err := f.engine.Start(ctx)
	require.NoError(t, err)
	f.turn(t, id, "A")
	f.turn(t, id, "John")
	f.turn(t, id, "")
	f.turn(t, id, "john@example.com")
	f.turn(t, id, "9876543210")
	f.turn(t, id, "support")
	f.turn(t, id, "again")

	assert.Equal(t, []domain.EventType{
		domain.EventSessionCreated,
		domain.EventStepAdvanced, domain.EventTurnProcessed, // welcome
		domain.EventValidationFailed, domain.EventTurnProcessed,
		domain.EventStepAdvanced, domain.EventTurnProcessed,
		domain.EventTurnProcessed, // re-read
		domain.EventStepAdvanced, domain.EventTurnProcessed,
		domain.EventStepAdvanced, domain.EventTurnProcessed,
		domain.EventStepAdvanced, domain.EventSessionCompleted, domain.EventTurnProcessed,
		domain.EventTurnProcessed, // closed
	}, rec.calls)

	assert.Equal(t, []string{
		domain.OutcomePrompt,
		domain.OutcomeRejected,
		domain.OutcomeAdvanced,
		domain.OutcomePrompt,
		domain.OutcomeAdvanced,
		domain.OutcomeAdvanced,
		domain.OutcomeCompleted,
		domain.OutcomeClosed,
	}, rec.outcomes)

	require.Len(t, rec.failures, 1)
	assert.Equal(t, domain.StepName, rec.failures[0].Step)
	assert.Equal(t, "Name must be at least 2 characters", rec.failures[0].Reason)
	assert.Equal(t, 1, rec.failures[0].RetryCount)
	assert.Equal(t, 3, rec.failures[0].MaxRetries)
}

func TestEngine_ResetHooks(t *testing.T) {
	rec := &hookRecorder{}
	f := newFixture(t, runtime.WithLifecycleHooks(rec.hooks()), runtime.WithMaxRetries(1))
	id := "resets"
	f.turn(t, id, "")

	f.turn(t, id, "1")
	f.clock.Advance(time.Hour)
	f.turn(t, id, "")

	assert.Equal(t, []domain.ResetReason{domain.ResetMaxRetries, domain.ResetExpired}, rec.resets)
	assert.Equal(t, domain.OutcomeReset, rec.outcomes[len(rec.outcomes)-1])
}

func TestEngine_ImplicitCreateFiresCreated(t *testing.T) {
	rec := &hookRecorder{}
	f := newFixture(t, runtime.WithLifecycleHooks(rec.hooks()))

	f.turn(t, "client-chosen", "")
	require.NotEmpty(t, rec.calls)
	assert.Equal(t, domain.EventSessionCreated, rec.calls[0])

	f.turn(t, "client-chosen", "")
	created := 0
	for _, c := range rec.calls {
		if c == domain.EventSessionCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestEngine_ConcurrentTurnsDoNotDoubleAdvance(t *testing.T) {
	f := newFixture(t)
	id := "race"
	f.turn(t, id, "")

	var wg sync.WaitGroup
	results := make([]*domain.Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.engine.ProcessTurn(context.Background(), id, "John")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	var advanced, rejected int
	for _, res := range results {
		require.NotNil(t, res)
		switch {
		case res.CurrentStep == domain.StepEmail && res.ValidationError == "":
			advanced++
		case res.ValidationError != "":
			rejected++
		}
	}
	assert.Equal(t, 1, advanced, "only one turn may take the name")
	assert.Equal(t, 1, rejected, "the other is read as an email")

	s := f.load(t, id)
	assert.Equal(t, domain.StepEmail, s.Step)
	assert.Equal(t, 1, s.RetryCount)
	assert.Equal(t, "John", s.Fields.Name)
}

func TestEngine_ParallelSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, err := f.engine.Start(ctx)
			if !assert.NoError(t, err) {
				return
			}
			for _, in := range []string{"John", "john@example.com", "+91 98765-43210", "consulting"} {
				_, err := f.engine.ProcessTurn(ctx, id, in)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	ids, err := f.engine.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, n)
	for _, id := range ids {
		s := f.load(t, id)
		assert.Equal(t, domain.StatusCompleted, s.Status, id)
		assert.Equal(t, "+91 98765 43210", s.Fields.Phone)
	}
}
