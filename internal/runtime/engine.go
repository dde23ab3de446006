package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/sanitizer"
	"github.com/aretw0/intake/pkg/session"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/google/uuid"
)

// Engine runs the intake dialogue: one state machine per session, advanced a
// turn at a time under the session lock.
type Engine struct {
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	maxRetries  int
	idleTimeout time.Duration
	services    []string

	now   func() time.Time
	newID func() string

	validators map[domain.Step]validation.Func
	messages   messageTable
}

// NewEngine creates an engine persisting sessions through the given manager.
func NewEngine(sessions *session.Manager, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions:    sessions,
		logger:      logging.NewNop(),
		maxRetries:  DefaultMaxRetries,
		idleTimeout: DefaultIdleTimeout,
		services:    append([]string(nil), DefaultServices...),
		now:         time.Now,
		newID:       uuid.NewString,
		messages:    newMessageTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validators = newValidators(e.services)
	return e
}

// MaxRetries returns the configured retry budget.
func (e *Engine) MaxRetries() int { return e.maxRetries }

// IdleTimeout returns the configured idle timeout.
func (e *Engine) IdleTimeout() time.Duration { return e.idleTimeout }

// Services returns a copy of the service catalogue.
func (e *Engine) Services() []string { return append([]string(nil), e.services...) }

func (e *Engine) newSession(id string) func() *domain.Session {
	return func() *domain.Session {
		return domain.NewSession(id, e.now())
	}
}

// CreateSession allocates a new session waiting at the start step.
func (e *Engine) CreateSession(ctx context.Context) (string, error) {
	id := e.newID()
	_, created, err := e.sessions.LoadOrCreate(ctx, id, e.newSession(id))
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	if !created {
		return "", fmt.Errorf("creating session: id %q already in use", id)
	}

	e.logger.Info("Session created", "session_id", id)
	if h := e.hooks.OnSessionCreated; h != nil {
		h(ctx, &domain.SessionEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventSessionCreated, SessionID: id},
			Step:      domain.StepStart,
		})
	}
	return id, nil
}

// Start creates a session and returns it together with the first prompt.
func (e *Engine) Start(ctx context.Context) (string, *domain.Result, error) {
	id, err := e.CreateSession(ctx)
	if err != nil {
		return "", nil, err
	}
	res, err := e.ProcessTurn(ctx, id, "")
	if err != nil {
		return "", nil, err
	}
	return id, res, nil
}

// ProcessTurn advances the session by one turn. An unknown ID creates the
// session. An empty input re-reads the pending prompt.
// Flow conditions are reported in the Result; errors are store faults only.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, input string) (*domain.Result, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	began := time.Now()
	now := e.now()
	events := e.newTurnEvents(sessionID, now)

	var (
		res  *domain.Result
		step domain.Step
	)
	err := e.sessions.Transact(ctx, sessionID, e.newSession(sessionID), func(s *domain.Session, created bool) error {
		if created {
			events.created(s.Step)
		}
		var err error
		res, err = e.turn(s, input, now, events)
		step = s.Step
		return err
	})
	if err != nil {
		e.logger.Error("Turn failed", "session_id", sessionID, "err", err)
		return nil, fmt.Errorf("processing turn: %w", err)
	}

	events.fire(ctx, step, time.Since(began))
	e.logger.Debug("Turn processed",
		"session_id", sessionID,
		"step", res.CurrentStep,
		"outcome", events.outcome,
	)
	return res, nil
}

// turn applies one input to the session. It runs under the session lock.
func (e *Engine) turn(s *domain.Session, input string, now time.Time, events *turnEvents) (*domain.Result, error) {
	// Completed sessions expire too, so an idle finished session starts over.
	if s.IdleExpired(now, e.idleTimeout) {
		s.Status = domain.StatusExpired
	}
	if s.Status != domain.StatusActive {
		return e.inactive(s, now, events), nil
	}
	s.Touch(now)

	var (
		accepted string
		answered domain.Step
	)
	if input != "" {
		if validate, ok := e.validators[s.Step]; ok {
			text := sanitizer.Clean(input)
			v := validate(text)
			if !v.Valid {
				return e.reject(s, text, v.Message, now, events), nil
			}
			answered = s.Step
			s.Fields.Set(answered, v.Normalized)
			s.Step, _ = answered.Next()
			s.RetryCount = 0
			accepted = text
			events.outcome = domain.OutcomeAdvanced
			events.advanced(answered, s.Step)
		}
	}

	res, err := e.respond(s, now, events)
	if err != nil {
		return nil, err
	}
	if answered != "" {
		s.RecordAt(now, answered, accepted, res.Message)
	}
	return res, nil
}

// respond composes the message for the step the session now stands at.
// Only the welcome is recorded here; accepted answers are recorded by turn.
func (e *Engine) respond(s *domain.Session, now time.Time, events *turnEvents) (*domain.Result, error) {
	switch s.Step {
	case domain.StepStart:
		s.Step = domain.StepName
		msg, err := e.messages.render(domain.StepName, s.Fields, e.services)
		if err != nil {
			return nil, err
		}
		s.RecordAt(now, domain.StepStart, "", msg)
		events.advanced(domain.StepStart, domain.StepName)
		return e.ask(domain.StepName, msg), nil

	case domain.StepName, domain.StepEmail, domain.StepPhone, domain.StepService:
		msg, err := e.messages.render(s.Step, s.Fields, e.services)
		if err != nil {
			return nil, err
		}
		res := e.ask(s.Step, msg)
		if s.Step == domain.StepService {
			res.Metadata[domain.KeyOptions] = e.Services()
		}
		return res, nil

	case domain.StepSummary:
		return e.complete(s, now, events)
	}

	return e.unknownState(s, now, events), nil
}

// ask builds the Result that prompts for step.
func (e *Engine) ask(step domain.Step, msg string) *domain.Result {
	next, _ := step.Next()
	return &domain.Result{
		Message:     msg,
		CurrentStep: step,
		NextStep:    next,
		Metadata: map[string]any{
			domain.KeyHint: e.messages.hint(step),
		},
	}
}

func (e *Engine) complete(s *domain.Session, now time.Time, events *turnEvents) (*domain.Result, error) {
	msg, err := e.messages.render(domain.StepSummary, s.Fields, e.services)
	if err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		Name:        s.Fields.Name,
		Email:       s.Fields.Email,
		Phone:       s.Fields.Phone,
		Service:     s.Fields.Service,
		SessionID:   s.ID,
		CompletedAt: now.UTC(),
	}
	s.Status = domain.StatusCompleted
	s.Metadata[domain.KeyFinalSummary] = summary.Map()
	events.completed(domain.StepSummary)

	e.logger.Info("Session completed", "session_id", s.ID, "service", summary.Service)
	return &domain.Result{
		Message:     msg,
		CurrentStep: domain.StepSummary,
		Summary:     summary,
		IsComplete:  true,
		Metadata: map[string]any{
			domain.KeySessionCompleted: true,
		},
	}, nil
}

// Inspect returns a copy of the stored session.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Delete removes a session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// List returns the IDs of the stored sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}
