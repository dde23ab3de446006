package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// If the terminal renderer cannot be built, text passes through unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}

	return func(markdown string) (string, error) {
		// Glamour joins single newlines; keep the message's line structure.
		return r.Render(strings.ReplaceAll(markdown, "\n", "  \n"))
	}
}

// SummaryMarkdown formats a completed summary as a markdown table.
func SummaryMarkdown(s *domain.Summary) string {
	var b strings.Builder
	b.WriteString("### Summary\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	rows := [][2]string{
		{"Name", s.Name},
		{"Email", s.Email},
		{"Phone", s.Phone},
		{"Service", s.Service},
		{"Session", s.SessionID},
		{"Completed", s.CompletedAt.Format("2006-01-02 15:04 MST")},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", r[0], escapeCell(r[1]))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
