package domain

import "time"

// Summary is the record produced when a session completes.
type Summary struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Service     string    `json:"service"`
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Map converts the summary into the plain map stashed in Session.Metadata, so
// that every store round-trips it identically.
func (s Summary) Map() map[string]any {
	return map[string]any{
		"name":         s.Name,
		"email":        s.Email,
		"phone":        s.Phone,
		"service":      s.Service,
		"session_id":   s.SessionID,
		"completed_at": s.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Result is the structured answer to one turn.
type Result struct {
	Message         string         `json:"message"`
	CurrentStep     Step           `json:"current_step"`
	NextStep        Step           `json:"next_step,omitempty"`
	ValidationError string         `json:"validation_error,omitempty"`
	Summary         *Summary       `json:"summary,omitempty"`
	IsComplete      bool           `json:"is_complete"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}
