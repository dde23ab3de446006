package runtime

import (
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// restart sends the session back to the first question.
func (e *Engine) restart(s *domain.Session, reason domain.ResetReason, events *turnEvents) domain.Step {
	from := s.Step
	s.Restart(domain.StepName)
	events.reset(from, reason)
	e.logger.Info("Session reset", "session_id", s.ID, "from", from, "reason", reason)
	return from
}

// restartResult is the prompt for the first question after a reset.
func (e *Engine) restartResult(msg string, meta map[string]any) *domain.Result {
	if meta == nil {
		meta = map[string]any{}
	}
	meta[domain.KeyHint] = e.messages.hint(domain.StepName)
	return &domain.Result{
		Message:     msg,
		CurrentStep: domain.StepName,
		NextStep:    domain.StepEmail,
		Metadata:    meta,
	}
}

// inactive applies the inactive-session policy.
func (e *Engine) inactive(s *domain.Session, now time.Time, events *turnEvents) *domain.Result {
	switch s.Status {
	case domain.StatusExpired:
		e.restart(s, domain.ResetExpired, events)
		s.Touch(now)
		return e.restartResult(msgExpired, map[string]any{domain.KeySessionRestarted: true})

	case domain.StatusCompleted:
		events.outcome = domain.OutcomeClosed
		return &domain.Result{
			Message:     msgCompleted,
			CurrentStep: domain.StepEnd,
			IsComplete:  true,
			Metadata:    map[string]any{domain.KeySessionCompleted: true},
		}
	}

	e.restart(s, domain.ResetInvalidStatus, events)
	s.Touch(now)
	return e.restartResult(msgReset, map[string]any{domain.KeySessionReset: true})
}

// reject records a failed answer and applies the retry-exhaustion policy once
// the budget is spent.
func (e *Engine) reject(s *domain.Session, text, reason string, now time.Time, events *turnEvents) *domain.Result {
	hint := e.messages.hint(s.Step)
	msg := failure(reason, hint)

	s.Record(now, text, msg)
	s.RetryCount++
	events.rejected(s.Step, reason, s.RetryCount, e.maxRetries)

	if s.RetryCount >= e.maxRetries {
		prev := e.restart(s, domain.ResetMaxRetries, events)
		res := e.restartResult(msgMaxRetries, map[string]any{domain.KeyPreviousStep: string(prev)})
		res.ValidationError = domain.CodeMaxRetries
		return res
	}

	return &domain.Result{
		Message:         msg,
		CurrentStep:     s.Step,
		ValidationError: msg,
		Metadata: map[string]any{
			domain.KeyRetryCount: s.RetryCount,
			domain.KeyMaxRetries: e.maxRetries,
			domain.KeyHint:       hint,
		},
	}
}

// unknownState recovers a session standing at a step outside the table.
func (e *Engine) unknownState(s *domain.Session, now time.Time, events *turnEvents) *domain.Result {
	e.logger.Warn("Session at unknown step", "session_id", s.ID, "step", s.Step, "err", domain.ErrUnknownStep)
	e.restart(s, domain.ResetUnknownState, events)
	s.Touch(now)
	res := e.restartResult(msgUnknown, nil)
	res.ValidationError = domain.CodeUnknownState
	return res
}
