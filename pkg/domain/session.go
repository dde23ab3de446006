package domain

import "time"

// SessionStatus describes whether a session still accepts answers.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"    // Collecting answers
	StatusCompleted SessionStatus = "completed" // Summary produced
	StatusExpired   SessionStatus = "expired"   // Idle past the configured timeout
	StatusError     SessionStatus = "error"     // Marked unusable, recovered by a soft reset
)

// Fields holds the answers accepted so far. A field is only set once the step
// collecting it has been passed.
type Fields struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Service string `json:"service,omitempty"`
}

// Set stores value for the field collected by step.
// It reports false if step does not collect a field.
func (f *Fields) Set(step Step, value string) bool {
	switch step {
	case StepName:
		f.Name = value
	case StepEmail:
		f.Email = value
	case StepPhone:
		f.Phone = value
	case StepService:
		f.Service = value
	default:
		return false
	}
	return true
}

// Get returns the value collected by step.
func (f Fields) Get(step Step) string {
	switch step {
	case StepName:
		return f.Name
	case StepEmail:
		return f.Email
	case StepPhone:
		return f.Phone
	case StepService:
		return f.Service
	}
	return ""
}

// HistoryEntry is one diagnostic record of a turn. The engine only appends to
// the history; it never reads it back.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	UserInput  string    `json:"user_input"`
	BotMessage string    `json:"bot_message"`
	Step       Step      `json:"step"`
	RetryCount int       `json:"retry_count"`
}

// Session is one user's traversal of the flow.
type Session struct {
	ID             string         `json:"id"`
	Step           Step           `json:"step"`
	Fields         Fields         `json:"fields"`
	Status         SessionStatus  `json:"status"`
	RetryCount     int            `json:"retry_count"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	History        []HistoryEntry `json:"history"`
	Metadata       map[string]any `json:"metadata"`
}

// NewSession creates an active session waiting at StepStart.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:             id,
		Step:           StepStart,
		Status:         StatusActive,
		CreatedAt:      now,
		LastActivityAt: now,
		History:        []HistoryEntry{},
		Metadata:       make(map[string]any),
	}
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

// IdleExpired reports whether no activity happened within timeout before now.
// A non-positive timeout disables expiry.
func (s *Session) IdleExpired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return now.After(s.LastActivityAt.Add(timeout))
}

// Restart discards collected answers, retries and any previous summary and
// places the session at step. The status becomes active again.
func (s *Session) Restart(step Step) {
	s.Step = step
	s.Fields = Fields{}
	s.RetryCount = 0
	s.Status = StatusActive
	delete(s.Metadata, KeyFinalSummary)
}

// Record appends a history entry using the current step and retry counter.
func (s *Session) Record(now time.Time, userInput, botMessage string) {
	s.RecordAt(now, s.Step, userInput, botMessage)
}

// RecordAt appends a history entry for an explicit step.
func (s *Session) RecordAt(now time.Time, step Step, userInput, botMessage string) {
	s.History = append(s.History, HistoryEntry{
		Timestamp:  now,
		UserInput:  userInput,
		BotMessage: botMessage,
		Step:       step,
		RetryCount: s.RetryCount,
	})
}

// Clone returns a deep copy so stores can hand out sessions without sharing
// mutable state with the engine.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = make([]HistoryEntry, len(s.History))
	copy(c.History, s.History)
	c.Metadata = CopyMap(s.Metadata)
	return &c
}

// CopyMap deep-copies nested maps and slices of a metadata map.
func CopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = copyValue(t[i])
		}
		return s
	case []string:
		s := make([]string, len(t))
		copy(s, t)
		return s
	default:
		return v
	}
}
