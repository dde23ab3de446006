package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventStepAdvanced     EventType = "step_advanced"
	EventValidationFailed EventType = "validation_failed"
	EventSessionReset     EventType = "session_reset"
	EventSessionCompleted EventType = "session_completed"
	EventTurnProcessed    EventType = "turn_processed"
)

// ResetReason explains why a session was sent back to the beginning.
type ResetReason string

const (
	ResetExpired       ResetReason = "expired"
	ResetMaxRetries    ResetReason = "max_retries"
	ResetInvalidStatus ResetReason = "invalid_status"
	ResetUnknownState  ResetReason = "unknown_state"
)

// Outcomes reported in TurnEvent.Outcome.
const (
	OutcomePrompt    = "prompt"    // pending prompt issued, nothing accepted
	OutcomeAdvanced  = "advanced"  // answer accepted
	OutcomeRejected  = "rejected"  // answer failed validation
	OutcomeReset     = "reset"     // flow sent back to the first question
	OutcomeCompleted = "completed" // summary produced
	OutcomeClosed    = "closed"    // turn on an already completed session
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent reports creation or completion of a session.
type SessionEvent struct {
	EventBase
	Step Step `json:"step"`
}

// StepEvent reports an accepted answer moving the session forward.
type StepEvent struct {
	EventBase
	From Step `json:"from"`
	To   Step `json:"to"`
}

// ValidationEvent reports a rejected answer.
type ValidationEvent struct {
	EventBase
	Step       Step   `json:"step"`
	Reason     string `json:"reason"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// ResetEvent reports a forced return to the first question.
type ResetEvent struct {
	EventBase
	From   Step        `json:"from"`
	Reason ResetReason `json:"reason"`
}

// TurnEvent is emitted once per processed turn.
type TurnEvent struct {
	EventBase
	Step     Step          `json:"step"`
	Duration time.Duration `json:"duration"`
	Outcome  string        `json:"outcome"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run after the turn has been persisted, outside the session lock.
type LifecycleHooks struct {
	OnSessionCreated   func(context.Context, *SessionEvent)
	OnStepAdvanced     func(context.Context, *StepEvent)
	OnValidationFailed func(context.Context, *ValidationEvent)
	OnSessionReset     func(context.Context, *ResetEvent)
	OnSessionCompleted func(context.Context, *SessionEvent)
	OnTurnProcessed    func(context.Context, *TurnEvent)
}

// ChainHooks returns hooks that call each of the given hooks in order.
func ChainHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionCreated: func(ctx context.Context, e *SessionEvent) {
			for _, h := range all {
				if h.OnSessionCreated != nil {
					h.OnSessionCreated(ctx, e)
				}
			}
		},
		OnStepAdvanced: func(ctx context.Context, e *StepEvent) {
			for _, h := range all {
				if h.OnStepAdvanced != nil {
					h.OnStepAdvanced(ctx, e)
				}
			}
		},
		OnValidationFailed: func(ctx context.Context, e *ValidationEvent) {
			for _, h := range all {
				if h.OnValidationFailed != nil {
					h.OnValidationFailed(ctx, e)
				}
			}
		},
		OnSessionReset: func(ctx context.Context, e *ResetEvent) {
			for _, h := range all {
				if h.OnSessionReset != nil {
					h.OnSessionReset(ctx, e)
				}
			}
		},
		OnSessionCompleted: func(ctx context.Context, e *SessionEvent) {
			for _, h := range all {
				if h.OnSessionCompleted != nil {
					h.OnSessionCompleted(ctx, e)
				}
			}
		},
		OnTurnProcessed: func(ctx context.Context, e *TurnEvent) {
			for _, h := range all {
				if h.OnTurnProcessed != nil {
					h.OnTurnProcessed(ctx, e)
				}
			}
		},
	}
}
