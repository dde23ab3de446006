package runtime

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/intake/pkg/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fixed user-facing texts of the policies.
const (
	msgExpired     = "Session expired. Let's restart. What's your name?"
	msgCompleted   = "You've completed the flow. Start over?"
	msgReset       = "Session reset. What's your name?"
	msgMaxRetries  = "Too many attempts. Let's start fresh. What's your name?"
	msgUnknown     = "Let's start over. What's your name?"
	msgComplete    = "🎉 Thank you! Here's your summary."
	servicesHeader = "Available services:"
)

// prompt is the message table entry of the step being asked.
// Ack acknowledges the answer that led to this step.
type prompt struct {
	Intro  string
	Ack    *template.Template
	Prompt string
	Hint   string
}

type messageTable map[domain.Step]prompt

func newMessageTable() messageTable {
	ack := func(name, text string) *template.Template {
		return template.Must(template.New(name).Option("missingkey=zero").Parse(text))
	}
	return messageTable{
		domain.StepName: {
			Intro:  "👋 Welcome! Let's get started.",
			Prompt: "What's your name?",
			Hint:   "Enter at least 2 letters",
		},
		domain.StepEmail: {
			Ack:    ack("email", "Nice to meet you, {{.Name}}!"),
			Prompt: "What's your email address?",
			Hint:   "Enter a valid email like user@example.com",
		},
		domain.StepPhone: {
			Ack:    ack("phone", "Got your email {{.Email}}."),
			Prompt: "What's your phone number?",
			Hint:   "Enter a valid 10-digit number",
		},
		domain.StepService: {
			Ack:    ack("service", "Phone saved {{.Phone}}."),
			Prompt: "Which service do you need?",
			Hint:   "Pick a single service from the list",
		},
		domain.StepSummary: {
			Ack: ack("summary", "Service selected: {{.Service}}."),
		},
	}
}

// hint returns the hint of step, or "" for steps without one.
func (t messageTable) hint(step domain.Step) string {
	return t[step].Hint
}

// render composes the message issued when the flow stands at step.
func (t messageTable) render(step domain.Step, fields domain.Fields, services []string) (string, error) {
	p, ok := t[step]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownStep, step)
	}

	var parts []string
	if p.Intro != "" {
		parts = append(parts, p.Intro)
	}
	if p.Ack != nil {
		var buf bytes.Buffer
		if err := p.Ack.Execute(&buf, fields); err != nil {
			return "", fmt.Errorf("rendering %s acknowledgement: %w", step, err)
		}
		parts = append(parts, buf.String())
	}
	if p.Prompt != "" {
		parts = append(parts, p.Prompt)
	}
	msg := strings.Join(parts, "\n")

	switch step {
	case domain.StepService:
		msg += "\n\n" + servicesHeader + "\n" + serviceList(services)
	case domain.StepSummary:
		msg += "\n\n" + msgComplete
	}
	return msg, nil
}

func serviceList(services []string) string {
	title := cases.Title(language.Und)
	lines := make([]string, len(services))
	for i, s := range services {
		lines[i] = "• " + title.String(s)
	}
	return strings.Join(lines, "\n")
}

// failure formats a rejected answer.
func failure(reason, hint string) string {
	return "❌ " + reason + " • " + hint
}
