package runtime

import (
	"context"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// turnEvents collects the hook calls of one turn so they can be fired after
// the session is committed and its lock released.
type turnEvents struct {
	hooks     domain.LifecycleHooks
	sessionID string
	now       time.Time
	pending   []func(context.Context)
	outcome   string
}

func (e *Engine) newTurnEvents(sessionID string, now time.Time) *turnEvents {
	return &turnEvents{hooks: e.hooks, sessionID: sessionID, now: now, outcome: domain.OutcomePrompt}
}

func (t *turnEvents) base(typ domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: t.now, Type: typ, SessionID: t.sessionID}
}

func (t *turnEvents) created(step domain.Step) {
	if h := t.hooks.OnSessionCreated; h != nil {
		ev := &domain.SessionEvent{EventBase: t.base(domain.EventSessionCreated), Step: step}
		t.pending = append(t.pending, func(ctx context.Context) { h(ctx, ev) })
	}
}

func (t *turnEvents) advanced(from, to domain.Step) {
	if h := t.hooks.OnStepAdvanced; h != nil {
		ev := &domain.StepEvent{EventBase: t.base(domain.EventStepAdvanced), From: from, To: to}
		t.pending = append(t.pending, func(ctx context.Context) { h(ctx, ev) })
	}
}

func (t *turnEvents) rejected(step domain.Step, reason string, retries, maxRetries int) {
	t.outcome = domain.OutcomeRejected
	if h := t.hooks.OnValidationFailed; h != nil {
		ev := &domain.ValidationEvent{
			EventBase:  t.base(domain.EventValidationFailed),
			Step:       step,
			Reason:     reason,
			RetryCount: retries,
			MaxRetries: maxRetries,
		}
		t.pending = append(t.pending, func(ctx context.Context) { h(ctx, ev) })
	}
}

func (t *turnEvents) reset(from domain.Step, reason domain.ResetReason) {
	t.outcome = domain.OutcomeReset
	if h := t.hooks.OnSessionReset; h != nil {
		ev := &domain.ResetEvent{EventBase: t.base(domain.EventSessionReset), From: from, Reason: reason}
		t.pending = append(t.pending, func(ctx context.Context) { h(ctx, ev) })
	}
}

func (t *turnEvents) completed(step domain.Step) {
	t.outcome = domain.OutcomeCompleted
	if h := t.hooks.OnSessionCompleted; h != nil {
		ev := &domain.SessionEvent{EventBase: t.base(domain.EventSessionCompleted), Step: step}
		t.pending = append(t.pending, func(ctx context.Context) { h(ctx, ev) })
	}
}

// fire runs the collected hooks followed by OnTurnProcessed.
func (t *turnEvents) fire(ctx context.Context, step domain.Step, took time.Duration) {
	for _, f := range t.pending {
		f(ctx)
	}
	if h := t.hooks.OnTurnProcessed; h != nil {
		h(ctx, &domain.TurnEvent{
			EventBase: t.base(domain.EventTurnProcessed),
			Step:      step,
			Duration:  took,
			Outcome:   t.outcome,
		})
	}
}
